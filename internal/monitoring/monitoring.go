package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	PostsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_created_total",
		Help: "Total posts successfully created",
	})

	PostsEdited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_edited_total",
		Help: "Total posts successfully edited",
	})

	CommentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "comments_created_total",
		Help: "Total comments successfully created",
	})

	FollowActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "follow_actions_total",
		Help: "Follow and unfollow requests by outcome",
	}, []string{"action", "result"})

	FragmentCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fragment_cache_requests_total",
		Help: "Fragment cache lookups by result",
	}, []string{"result"})

	LoginFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "login_failure_total",
		Help: "Total failed login attempts",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PostsCreated)
	prometheus.MustRegister(PostsEdited)
	prometheus.MustRegister(CommentsCreated)
	prometheus.MustRegister(FollowActions)
	prometheus.MustRegister(FragmentCache)
	prometheus.MustRegister(LoginFailure)
}

// StatusRecorder remembers the status code written through it.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (rw *StatusRecorder) WriteHeader(code int) {
	rw.Status = code
	rw.ResponseWriter.WriteHeader(code)
}

// InstrumentHandler records request timing per route template, so that
// usernames and post ids do not become label values.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rw.Status)).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
