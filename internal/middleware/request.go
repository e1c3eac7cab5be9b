package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = echo.HeaderXRequestID

// CtxRequestID is the context key holding the request id.
const CtxRequestID = "request_id"

// RequestID reuses the caller's X-Request-ID or generates a UUID, and
// stores it under CtxRequestID.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: uuid.NewString,
        RequestIDHandler: func(c echo.Context, id string) {
            c.Set(CtxRequestID, id)
        },
    })
}

// GetRequestID returns the id set by RequestID.
func GetRequestID(c echo.Context) string {
    s, _ := c.Get(CtxRequestID).(string)
    return s
}

// RequestLogger writes one line per request, at a level chosen from the
// response status.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }

            req, res := c.Request(), c.Response()
            fields := []zap.Field{
                zap.String("request_id", GetRequestID(c)),
                zap.Int("status", res.Status),
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.String("route", c.Path()),
                zap.String("ip", c.RealIP()),
                zap.Duration("latency", time.Since(start)),
                zap.Int64("bytes_out", res.Size),
            }
            if uid := UserID(c); uid != "" {
                fields = append(fields, zap.String("member_id", uid))
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }
            switch {
            case res.Status >= 500:
                log.Error("server error", fields...)
            case res.Status >= 400:
                log.Warn("client error", fields...)
            default:
                log.Info("request completed", fields...)
            }
            return nil
        }
    }
}
