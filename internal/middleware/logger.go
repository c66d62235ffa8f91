package middleware

import (
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request through logger.  Server errors are
// logged at Error, client errors at Warn and the rest at Info.  It expects
// echo's RequestID middleware to run first.
func RequestLogger(logger logrus.FieldLogger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURI:       true,
        LogStatus:    true,
        LogLatency:   true,
        LogRequestID: true,
        LogRemoteIP:  true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            entry := logger.WithFields(logrus.Fields{
                "method":     v.Method,
                "uri":        v.URI,
                "status":     v.Status,
                "latency":    v.Latency.String(),
                "request_id": v.RequestID,
                "remote_ip":  v.RemoteIP,
                "user_id":    currentUserID(c),
            })
            if v.Error != nil {
                entry = entry.WithError(v.Error)
            }
            switch {
            case v.Status >= 500:
                entry.Error("request")
            case v.Status >= 400:
                entry.Warn("request")
            default:
                entry.Info("request")
            }
            return nil
        },
    })
}
