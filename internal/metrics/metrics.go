package metrics

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "videotube_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "status"})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "videotube_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "videotube_token_refresh_total",
		Help: "Refresh-token rotations by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(RequestsTotal, LoginsTotal, RefreshTotal)
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts requests per matched route and response status.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		route := c.Route().Path
		status := c.Response().StatusCode()
		RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		return err
	}
}
