package session

import (
	"os"
	"strings"
	"time"

	"industrium/authority"
	"industrium/bizerror"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

const TokenExpiration = 24 * time.Hour

// parsed sessions are cached by raw token to skip claim parsing per request
var TokenCache = cache.New(TokenExpiration, 1*time.Minute)

const KeySecCtx = "SecCtx"
const KeySecToken = "sec_token"

type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

var jwtSecret = []byte(func() string {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}
	return "industrium-dev-secret"
}())

func JwtSecret() []byte {
	return jwtSecret
}

// IssueToken sign a JWT carrying the identity and the role claim
func IssueToken(identity Identity, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"uid":  identity.ID.String(),
		"name": identity.Name,
		"role": identity.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(TokenExpiration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken rebuild a Session from a signed token; bizerror.ErrUnauthenticated
// on any invalid, expired or malformed token
func ParseToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, bizerror.ErrUnauthenticated
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, bizerror.ErrUnauthenticated
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, bizerror.ErrUnauthenticated
	}

	uidValue, _ := claims["uid"].(string)
	uid, err := types.ParseID(uidValue)
	if err != nil {
		return nil, bizerror.ErrUnauthenticated
	}
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	if role != authority.RoleManager && role != authority.RoleWorker {
		return nil, bizerror.ErrUnauthenticated
	}

	s := Session{
		Token:    tokenString,
		Identity: Identity{ID: uid, Name: name, Role: role},
		Perms:    authority.Permissions{role},
	}
	if issuedAt, err := claims.GetIssuedAt(); err == nil && issuedAt != nil {
		s.SigningTime = issuedAt.Time
	}
	return &s, nil
}

func ExtractSessionFromGinContext(ctx *gin.Context) *Session {
	value, found := ctx.Get(KeySecCtx)
	if !found {
		return &Session{Context: ctx.Request.Context()}
	}
	s0, ok := value.(*Session)
	if !ok || s0.Token == "" {
		return &Session{Context: ctx.Request.Context()}
	}
	s := s0.Clone()
	s.Context = ctx.Request.Context() // trace context
	return &s
}

func InjectSessionIntoGinContext(ctx *gin.Context, s *Session) {
	if s != nil && s.Token != "" {
		ctx.Set(KeySecCtx, s)
	}
}

// AuthFilter accept the bearer token of the Authorization header, falling
// back to the session cookie. Anonymous requests are rejected with 401.
func AuthFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := extractToken(ctx)
		if token == "" {
			panic(bizerror.ErrUnauthenticated)
		}

		if cached, found := TokenCache.Get(token); found {
			if s, ok := cached.(*Session); ok {
				InjectSessionIntoGinContext(ctx, s)
				ctx.Next()
				return
			}
		}

		s, err := ParseToken(token)
		if err != nil {
			panic(bizerror.ErrUnauthenticated)
		}
		TokenCache.Set(token, s, cache.DefaultExpiration)
		InjectSessionIntoGinContext(ctx, s)
		ctx.Next()
	}
}

func extractToken(ctx *gin.Context) string {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	token, err := ctx.Cookie(KeySecToken)
	if err != nil {
		return ""
	}
	return token
}
