// Package session builds an authenticated getAir client from the configuration.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/clambin/getair-monitor/internal/device"
	"github.com/clambin/getair-monitor/internal/getair"
	"github.com/clambin/getair-monitor/internal/tokenstore"
	"github.com/clambin/go-common/set"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

const defaultHTTPTimeout = 30 * time.Second

type Session struct {
	Client *getair.Client
	Tokens *getair.TokenManager
	Zones  set.Set[int]
	store  *tokenstore.Store
}

// Credentials returns the getAir credentials found in the configuration.
func Credentials(v *viper.Viper) getair.Credentials {
	return getair.Credentials{
		AuthURL:  v.GetString("getair.authURL"),
		APIURL:   v.GetString("getair.apiURL"),
		ClientID: v.GetString("getair.clientID"),
		Username: v.GetString("getair.username"),
		Password: v.GetString("getair.password"),
		DeviceID: v.GetString("getair.deviceID"),
	}
}

// Zones returns the enabled zones: zones.zone1 ... zones.zone3.
func Zones(v *viper.Viper) (set.Set[int], error) {
	zones := set.New[int]()
	for zone := 1; zone <= device.ZoneCount; zone++ {
		if v.GetBool("zones.zone" + strconv.Itoa(zone)) {
			zones.Add(zone)
		}
	}
	if len(zones) == 0 {
		return nil, errors.New("no zones enabled")
	}
	return zones, nil
}

// New creates the token manager and the client. If r is not nil, the HTTP and authentication metrics are registered with it.
func New(v *viper.Viper, r prometheus.Registerer, logger *slog.Logger) (*Session, error) {
	credentials := Credentials(v)
	if err := credentials.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	zones, err := Zones(v)
	if err != nil {
		return nil, err
	}

	httpTimeout := v.GetDuration("http.timeout")
	if httpTimeout <= 0 {
		httpTimeout = defaultHTTPTimeout
	}
	httpClient := &http.Client{Timeout: httpTimeout}
	tokenOptions := []getair.TokenManagerOption{
		getair.WithSettleDelay(v.GetDuration("auth.settleDelay")),
		getair.WithRefreshSkew(v.GetDuration("auth.refreshSkew")),
		getair.WithTokenLogger(logger.With("component", "auth")),
	}
	if r != nil {
		requestMetrics := getair.NewRequestMetrics("getair", "monitor", prometheus.Labels{"application": "getair"})
		attempts := getair.NewAuthAttemptCounter("getair", "monitor")
		r.MustRegister(requestMetrics, attempts)
		httpClient = getair.NewInstrumentedHTTPClient(nil, requestMetrics, httpTimeout)
		tokenOptions = append(tokenOptions, getair.WithAttemptCounter(attempts))
	}
	tokenOptions = append(tokenOptions, getair.WithAuthHTTPClient(httpClient))

	var store *tokenstore.Store
	if path := v.GetString("tokenstore.path"); path != "" {
		if store, err = tokenstore.Open(path); err != nil {
			return nil, fmt.Errorf("token store: %w", err)
		}
		tokenOptions = append(tokenOptions, getair.WithTokenStore(store))
	}

	tokens := getair.NewTokenManager(credentials, tokenOptions...)
	client := getair.NewClient(credentials, tokens,
		getair.WithHTTPClient(httpClient),
		getair.WithLogger(logger.With("component", "client")),
	)
	return &Session{Client: client, Tokens: tokens, Zones: zones, store: store}, nil
}

func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
