package middleware

import (
	"log"

	"github.com/gin-gonic/gin"

	"smartliving/site/internal/captcha"
	"smartliving/site/internal/config"
)

// ContextKeyIsHumanVerified is set by CaptchaMiddleware and read by the rate limiter.
const ContextKeyIsHumanVerified = "isHumanVerified"

// Client identification headers sent by the site frontend.
const (
	HeaderFingerprint = "X-BFP"
	HeaderSPASession  = "X-SPA"
	HeaderHumanToken  = "X-C-T"
	HeaderChallenge   = "X-C-V"
)

// CaptchaMiddleware marks the request as human when it carries a valid X-C-T
// token, or a Turnstile challenge (X-C-V) that verifies. A fresh X-C-T is
// returned after a successful challenge. It never rejects a request itself.
func CaptchaMiddleware(cfg *config.Config, verifier captcha.ITurnstileVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		fingerprint := c.GetHeader(HeaderFingerprint)
		spaSession := c.GetHeader(HeaderSPASession)

		isHuman := false
		if token := c.GetHeader(HeaderHumanToken); token != "" {
			isHuman = verifier.ValidateHumanToken(token, ip, fingerprint, spaSession)
		}

		if challenge := c.GetHeader(HeaderChallenge); !isHuman && challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, ip)
			switch {
			case err != nil:
				log.Printf("middleware: turnstile verification for %s failed: %v", ip, err)
			case verified:
				isHuman = true
				fresh, err := verifier.GenerateHumanToken(ip, fingerprint, spaSession, cfg.CaptchaTokenTTL)
				if err != nil {
					log.Printf("middleware: could not issue X-C-T for %s: %v", ip, err)
				} else {
					c.Header(HeaderHumanToken, fresh)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}
