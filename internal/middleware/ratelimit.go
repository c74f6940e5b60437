package middleware

import (
	"net/http"

	"github.com/dkrasnov/reminders/internal/request"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
)

const defaultRatelimitRate = "20-S"

// RateLimit returns middleware that uses ulule/limiter with an
// in-process store. The rate uses the limiter format, e.g. "20-S".
// Uses request.ClientIP for the limit key.
func RateLimit(rateStr string) (func(http.Handler) http.Handler, error) {
	if rateStr == "" {
		rateStr = defaultRatelimitRate
	}
	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		return nil, err
	}

	instance := limiter.New(memorystore.NewStore(), rate)
	keyGetter := func(r *http.Request) string {
		return request.ClientIP(r)
	}
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(keyGetter))
	return mw.Handler, nil
}
