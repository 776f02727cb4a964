package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

	"github.com/bazaarlab/storefront/config"
)

const ApiPrefix = "/api/v1"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WebServer echo instance plus the versioned api group
type WebServer struct {
	root *echo.Echo
	api  *echo.Group
	addr string
}

var server *WebServer

// Init builds the process wide server; route registration helpers use it.
func Init(cfg *config.AppConfig) *WebServer {
	server = NewWebServer(cfg)
	return server
}

// Get returns the server created by Init.
func Get() *WebServer {
	return server
}

func NewWebServer(cfg *config.AppConfig) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = &jsoniterSerializer{}
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler
	if cfg.System.Debug {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.WARN)
	}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestID())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			zap.L().Error("http handler panic", zap.String("namespace", "web"),
				zap.String("uri", c.Request().RequestURI), zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, "Accept-Language", echo.HeaderAuthorization},
	}))
	if cfg.Web.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Web.BodyLimit))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("namespace", "web"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			if v.Status >= http.StatusInternalServerError {
				zap.L().Error("request", fields...)
			} else {
				zap.L().Debug("request", fields...)
			}
			return nil
		},
	}))

	if cfg.Media.URLPrefix != "" {
		e.Static(cfg.Media.URLPrefix, cfg.GetMediaRoot())
	}

	return &WebServer{
		root: e,
		api:  e.Group(ApiPrefix),
		addr: fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
	}
}

func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

// Start blocks serving HTTP until Shutdown is called.
func (s *WebServer) Start() error {
	zap.L().Info("web server listening", zap.String("namespace", "web"), zap.String("addr", s.addr))
	err := s.root.Start(s.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *WebServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.root.Shutdown(ctx)
}

// ApiUse adds middleware to every route registered afterwards under ApiPrefix.
func ApiUse(m ...echo.MiddlewareFunc) {
	server.api.Use(m...)
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiPATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PATCH(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// GET registers outside the api prefix, e.g. /health
func GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.root.GET(path, h, m...)
}

// errorHandler renders echo errors (unknown route, bad method, body too
// large, malformed JSON) in the same envelope handlers use.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	errCode := "INTERNAL_ERROR"
	switch code {
	case http.StatusNotFound:
		errCode = "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		errCode = "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		errCode = "PAYLOAD_TOO_LARGE"
	case http.StatusBadRequest:
		errCode = "INVALID_REQUEST"
	}
	if code >= http.StatusInternalServerError {
		zap.L().Error("unhandled http error", zap.String("namespace", "web"),
			zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}
	var resp error
	if c.Request().Method == http.MethodHead {
		resp = c.NoContent(code)
	} else {
		resp = c.JSON(code, map[string]interface{}{"error": errCode, "message": msg})
	}
	if resp != nil {
		zap.L().Warn("write error response", zap.Error(resp))
	}
}

type jsoniterSerializer struct{}

func (jsoniterSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsoniterSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unable to parse JSON body: "+err.Error()).SetInternal(err)
	}
	return nil
}

// Validator adapts go-playground/validator to echo and reports json field names.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// RegisterValidation exposes custom tags to the application.
func (v *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return v.validate.RegisterValidation(tag, fn)
}
