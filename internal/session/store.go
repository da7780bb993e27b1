package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "stk_session"

// Store is the per-visitor key/value session the checkout flow keeps its
// pending checkout id in.
type Store interface {
	Get(c *gin.Context, key string) (string, bool)
	Set(c *gin.Context, key, value string) error
}

type Claims struct {
	Values map[string]string `json:"values"`
	jwt.RegisteredClaims
}

var ErrInvalidSession = errors.New("invalid session")

// CookieStore keeps the session in an HS256-signed JWT cookie so no server
// side state is needed.
type CookieStore struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

func NewCookieStore(secret string, ttl time.Duration, secure bool) *CookieStore {
	return &CookieStore{secret: []byte(secret), ttl: ttl, secure: secure}
}

func (s *CookieStore) Get(c *gin.Context, key string) (string, bool) {
	claims, err := s.load(c)
	if err != nil {
		return "", false
	}
	v, ok := claims.Values[key]
	return v, ok && v != ""
}

func (s *CookieStore) Set(c *gin.Context, key, value string) error {
	values := map[string]string{}
	if claims, err := s.load(c); err == nil {
		for k, v := range claims.Values {
			values[k] = v
		}
	}
	values[key] = value
	token, err := s.sign(values)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(s.ttl.Seconds()), "/", "", s.secure, true)
	return nil
}

func (s *CookieStore) sign(values map[string]string) (string, error) {
	now := time.Now()
	claims := Claims{
		Values: values,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *CookieStore) load(c *gin.Context) (*Claims, error) {
	raw, err := c.Cookie(CookieName)
	if err != nil || raw == "" {
		return nil, ErrInvalidSession
	}
	return s.parse(raw)
}

func (s *CookieStore) parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidSession
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
