package store

import (
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// numeric widens the integer and float kinds BSON decodes to.
func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func timeOf(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}

func valuesEqual(a, b interface{}) bool {
	if x, ok := numeric(a); ok {
		y, ok := numeric(b)
		return ok && x == y
	}
	if x, ok := timeOf(a); ok {
		y, ok := timeOf(b)
		return ok && x.Equal(y)
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders values the way the Mongo store sorts them for the
// types this application stores: missing < numbers < strings < bools < dates.
func compareValues(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		x, _ := numeric(a)
		y, _ := numeric(b)
		return cmpFloat(x, y)
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case 4:
		x, _ := timeOf(a)
		y, _ := timeOf(b)
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
	}
	return 0
}

func rank(v interface{}) int {
	if v == nil {
		return 0
	}
	if _, ok := numeric(v); ok {
		return 1
	}
	if _, ok := v.(string); ok {
		return 2
	}
	if _, ok := v.(bool); ok {
		return 3
	}
	if _, ok := timeOf(v); ok {
		return 4
	}
	return 5
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// lookup resolves a dotted path inside a document.
func lookup(d Doc, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = d
	for _, p := range parts {
		m, ok := cur.(Doc)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// assign sets a dotted path, creating intermediate documents as needed.
func assign(d Doc, path string, v interface{}) {
	parts := strings.Split(path, ".")
	cur := d
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(Doc)
		if !ok {
			next = Doc{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}
