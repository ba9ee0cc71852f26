package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService verifies access tokens issued by the identity provider. It
// can also mint tokens for local development and tests.
type TokenService struct {
	Secret    []byte
	Issuer    string
	AccessTTL time.Duration
}

func (t TokenService) CreateAccessToken(userID string, roles []string) (string, int64, error) {
	now := time.Now().UTC()
	exp := now.Add(t.AccessTTL)
	claims := jwt.MapClaims{
		"iss":   t.Issuer,
		"sub":   userID,
		"typ":   "access",
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.Secret)
	return signed, exp.Unix(), err
}

func (t TokenService) ParseToken(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return token, claims, err
}

// ActorFromToken resolves a bearer access token into an Actor.
func (t TokenService) ActorFromToken(tokenStr string) (Actor, bool) {
	token, claims, err := t.ParseToken(tokenStr)
	if err != nil || !token.Valid {
		return Actor{}, false
	}
	if claims["typ"] != "access" {
		return Actor{}, false
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return Actor{}, false
	}
	roles := []string{}
	if rawRoles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range rawRoles {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	return Actor{UserID: userID, Role: RoleFromClaims(roles)}, true
}
