package middleware

import (
	"net/http"
	"time"

	"tradecore/pkg/utils"
)

// responseWriter оборачивает http.ResponseWriter для захвата статуса
// и размера ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// Logging - middleware логирования HTTP запросов.
//
// Пишет метод, путь, статус, размер ответа и длительность обработки.
// Ошибочные статусы (>= 500) логируются уровнем error, остальные - info.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		log := utils.GetGlobalLogger()
		elapsed := time.Since(start)

		if rw.statusCode >= http.StatusInternalServerError {
			log.Error("http request",
				utils.String("method", r.Method),
				utils.String("path", r.URL.Path),
				utils.Int("status", rw.statusCode),
				utils.Int("bytes", rw.written),
				utils.Latency(float64(elapsed.Microseconds())/1000))
			return
		}

		log.Info("http request",
			utils.String("method", r.Method),
			utils.String("path", r.URL.Path),
			utils.Int("status", rw.statusCode),
			utils.Int("bytes", rw.written),
			utils.Latency(float64(elapsed.Microseconds())/1000))
	})
}
