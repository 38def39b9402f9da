package middleware

import (
	"errors"
	"net/http"
	"strings"

	"canteen/internal/config"
	"canteen/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxActorKey = "actor" // model.Actor
)

// bearerAuth用のJWT検証ミドルウェア。
// トークンの発行は認証サービス側。ここでは署名を検証して呼び出し元を取り出すだけ。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	secret := []byte(cfg.JWTSecret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("No token provided. Please login."))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//JWTをパースして検証する（expもここで見る）
			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return secret, nil
			})
			if err != nil || token == nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON("Invalid or expired token."))
			}

			//claimsを取り出す
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//contextへ保存
			c.Set(CtxActorKey, actor)

			return next(c)
		}
	}
}

// ActorFrom はAuthJWTが入れた呼び出し元を返す。
func ActorFrom(c echo.Context) (model.Actor, bool) {
	actor, ok := c.Get(CtxActorKey).(model.Actor)
	if !ok || !actor.Valid() {
		return model.Actor{}, false
	}
	return actor, true
}

// subを優先、なければuserId
func actorFromClaims(claims jwt.MapClaims) (model.Actor, error) {
	userID, err := parseString(claims["sub"])
	if err != nil || strings.TrimSpace(userID) == "" {
		userID, err = parseString(claims["userId"])
		if err != nil || strings.TrimSpace(userID) == "" {
			return model.Actor{}, errors.New("invalid sub")
		}
	}

	//roleを取り出す（student/admin）
	rawRole, err := parseString(claims["role"])
	if err != nil {
		return model.Actor{}, err
	}
	role, err := model.ParseRole(rawRole)
	if err != nil {
		return model.Actor{}, err
	}

	return model.Actor{UserID: model.UserID(strings.TrimSpace(userID)), Role: role}, nil
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Success: false, Message: msg}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}
