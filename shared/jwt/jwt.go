package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	internal_errors "github.com/itchan-dev/mediable/shared/errors"
	"github.com/itchan-dev/mediable/shared/logger"
)

// Principal is the authenticated caller of a mutating route.
type Principal struct {
	Subject string
	Admin   bool
}

type JwtService interface {
	NewToken(p Principal) (string, error)
	DecodeToken(jwtStr string) (*Principal, error)
}

type Jwt struct {
	secretKey string
	ttl       time.Duration
}

func New(secretKey string, ttl time.Duration) JwtService {
	return &Jwt{secretKey, ttl}
}

// NewToken is used by tests and operator tooling; the API only verifies tokens.
func (j *Jwt) NewToken(p Principal) (string, error) {
	claims := jwt.MapClaims{}
	claims["sub"] = p.Subject
	claims["admin"] = p.Admin
	claims["exp"] = time.Now().Add(j.ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		logger.Log.Error("failed to sign token", "error", err)
		return "", errors.New("Can't create token")
	}

	return tokenString, nil
}

func (j *Jwt) DecodeToken(jwtStr string) (*Principal, error) {
	token, err := jwt.Parse(jwtStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		logger.Log.Debug("token rejected", "error", err)
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Invalid token signature", StatusCode: http.StatusUnauthorized}
	}

	if !token.Valid {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Token has no subject", StatusCode: http.StatusUnauthorized}
	}
	admin, _ := claims["admin"].(bool)

	return &Principal{Subject: sub, Admin: admin}, nil
}
