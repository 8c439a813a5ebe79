package identity

import (
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HS256 access tokens using the secret shared with the
// identity provider.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := mapClaims["sub"].(string)
	userID, err := uuid.FromString(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims := &Claims{UserID: userID}
	claims.Email, _ = mapClaims["email"].(string)

	// The provider nests profile fields under user_metadata.
	if meta, ok := mapClaims["user_metadata"].(map[string]interface{}); ok {
		claims.FullName, _ = meta["full_name"].(string)
	}
	if claims.FullName == "" {
		claims.FullName, _ = mapClaims["full_name"].(string)
	}

	return claims, nil
}
