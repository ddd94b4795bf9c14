package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/LotTrace/LotTrace/internal/common/logger"
	"github.com/LotTrace/LotTrace/internal/common/middleware"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// Middleware 标准的 http.Handler 装饰器。
type Middleware func(http.Handler) http.Handler

// Chain 将多个 middleware 串起来（按传入顺序执行）。
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		h = mws[i](h)
	}
	return h
}

// Recovery 防止 panic 直接把进程打崩，并记录栈信息。
func Recovery(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if log != nil {
						log.Errorf("panic in %s %s err=%v stack=%s", r.Method, r.URL.Path, rec, string(debug.Stack()))
					}
					http.Error(w, `{"detail":"internal server error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder 记录写出的状态码，供访问日志使用。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// AccessLog 记录每个 HTTP 请求的耗时/状态码。
func AccessLog(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			cost := time.Since(start)

			if log == nil {
				return
			}
			fields := map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": rec.status,
				"cost":   cost.String(),
			}
			if rec.status >= http.StatusInternalServerError {
				log.WithFields(fields).Warn("http request failed")
			} else {
				log.WithFields(fields).Info("http request ok")
			}
		})
	}
}

// Tracing 基于 OpenTracing 的最小 server middleware：
// - 从请求头里提取 span context（uber-trace-id / traceparent 等，取决于上游注入格式）
// - 创建 server span，并注入 ctx，方便业务侧 opentracing.StartSpanFromContext 使用
func Tracing(serviceName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracer := opentracing.GlobalTracer()

			var parent opentracing.SpanContext
			if sc, err := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(r.Header)); err == nil {
				parent = sc
			}

			operation := r.Method + " " + r.URL.Path
			var span opentracing.Span
			if parent != nil {
				span = tracer.StartSpan(operation, ext.RPCServerOption(parent))
			} else {
				span = tracer.StartSpan(operation)
			}
			defer span.Finish()

			ext.SpanKindRPCServer.Set(span)
			ext.Component.Set(span, "http")
			ext.HTTPMethod.Set(span, r.Method)
			ext.HTTPUrl.Set(span, r.URL.Path)
			if serviceName != "" {
				span.SetTag("service", serviceName)
			}

			ctx := opentracing.ContextWithSpan(r.Context(), span)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit 超出限流时返回 429。
func RateLimit(limiter middleware.RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow(context.Background()) {
				http.Error(w, `{"detail":"too many requests"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
