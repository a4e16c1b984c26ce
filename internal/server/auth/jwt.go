// Package auth issues and verifies the HS256 tokens that guard the operator
// endpoints. Share-token access for uploaders is handled elsewhere; this is
// strictly for back-office users.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/documo/documo/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the operator identifier.
type Claims struct {
	jwt.RegisteredClaims
	OperatorID string
}

func GenerateToken(operatorID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		OperatorID: operatorID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func GetOperatorIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.OperatorID, nil
}
