package middleware

import (
	"net/http"
	"time"

	"storefront/internal/logging"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestLogger はリクエストごとのspanとロガーをctxに載せ、終了時に1行出す。
// request idはecho標準のRequestIDミドルウェアが付けたものを使う。
func RequestLogger(base *zap.Logger) echo.MiddlewareFunc {
	tracer := otel.Tracer("storefront/http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			res := c.Response()

			// 上流のtraceparentがあれば引き継ぐ
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			ctx, span := tracer.Start(ctx, req.Method+" "+c.Path(),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("http.route", c.Path()),
				),
			)
			defer span.End()

			reqID := res.Header().Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = req.Header.Get(echo.HeaderXRequestID)
			}
			l := logging.WithTrace(ctx, base.With(zap.String("request_id", reqID)))
			c.SetRequest(req.WithContext(logging.WithLogger(ctx, l)))

			err := next(c)
			if err != nil {
				// echoのエラーハンドラにステータスを決めさせる
				c.Error(err)
			}

			span.SetAttributes(attribute.Int("http.response.status_code", res.Status))
			if res.Status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(res.Status))
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
			}
			if id, ok := c.Get(CtxUserIDKey).(int64); ok {
				fields = append(fields, zap.Int64("account_id", id))
			}
			switch {
			case res.Status >= 500:
				l.Error("request", fields...)
			case res.Status >= 400:
				l.Warn("request", fields...)
			default:
				l.Info("request", fields...)
			}
			return nil
		}
	}
}
