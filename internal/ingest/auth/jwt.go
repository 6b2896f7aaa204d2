// Package auth issues and validates the bearer tokens controllers present
// when uploading.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mlevkov/camlink/internal/shared"
)

// Claims includes the registered claims plus the sensor the token was
// issued to.
type Claims struct {
	jwt.RegisteredClaims
	SensorID string
}

func GenerateToken(sensorID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		SensorID: sensorID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func GetSensorIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", shared.ErrorInvalidToken
	}

	return claims.SensorID, nil
}

// FromAuthHeader extracts the token from an "Authorization: Bearer <token>"
// header value.
func FromAuthHeader(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", shared.ErrorInvalidAuthheaderFormat
	}
	return parts[1], nil
}
