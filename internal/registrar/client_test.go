package registrar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"domainvault/internal/registrar/metrics"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/circuit"
)

// fakeRegistrar answers reseller commands from canned handlers and records every query.
type fakeRegistrar struct {
	mu       sync.Mutex
	queries  []url.Values
	taken    map[string]bool
	handlers map[string]func(q url.Values) (int, string)
}

func newFakeRegistrar() *fakeRegistrar {
	f := &fakeRegistrar{taken: map[string]bool{"taken.com": true}}
	f.handlers = map[string]func(q url.Values) (int, string){
		commandCheck: func(q url.Values) (int, string) {
			name := q.Get("sld") + "." + q.Get("tld")
			code, text := "210", "Domain available"
			if f.taken[name] {
				code, text = "211", "Domain not available"
			}
			return http.StatusOK, fmt.Sprintf(`<?xml version="1.0"?>
<interface-response>
  <DomainName>%s</DomainName>
  <RRPCode>%s</RRPCode>
  <RRPText>%s</RRPText>
  <IsPremiumName>false</IsPremiumName>
  <Command>CHECK</Command>
  <ErrCount>0</ErrCount>
  <Done>true</Done>
</interface-response>`, name, code, text)
		},
	}
	return f
}

func (f *fakeRegistrar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	f.queries = append(f.queries, q)
	h := f.handlers[q.Get("command")]
	f.mu.Unlock()
	if h == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	status, body := h(q)
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeRegistrar) handle(command string, h func(q url.Values) (int, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[command] = h
}

func (f *fakeRegistrar) lastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func (f *fakeRegistrar) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type ClientSuite struct {
	suite.Suite
	fake    *fakeRegistrar
	server  *httptest.Server
	metrics *metrics.Metrics
	client  *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.fake = newFakeRegistrar()
	s.server = httptest.NewServer(s.fake)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.client = New(Config{
		BaseURL:        s.server.URL,
		UID:            "reseller",
		Password:       "s3cret",
		Timeout:        2 * time.Second,
		MaxConcurrency: 3,
	}, WithMetrics(s.metrics))
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) TestCheckAvailability() {
	ctx := context.Background()

	s.Run("available name", func() {
		res, err := s.client.CheckAvailability(ctx, "fresh", "com")
		s.Require().NoError(err)
		s.True(res.Available)
		s.Equal("fresh.com", res.Domain)
		s.Equal("210", res.Code)

		q := s.fake.lastQuery()
		s.Equal("reseller", q.Get("uid"))
		s.Equal("s3cret", q.Get("pw"))
		s.Equal("check", q.Get("command"))
		s.Equal("xml", q.Get("responsetype"))
	})

	s.Run("taken name is unavailable without error", func() {
		res, err := s.client.CheckAvailability(ctx, "taken", "com")
		s.Require().NoError(err)
		s.False(res.Available)
		s.Equal("211", res.Code)
	})

	s.Run("code 200 also means available", func() {
		s.fake.handle(commandCheck, func(url.Values) (int, string) {
			return http.StatusOK, `<interface-response><RRPCode>200</RRPCode><ErrCount>0</ErrCount></interface-response>`
		})
		res, err := s.client.CheckAvailability(ctx, "other", "net")
		s.Require().NoError(err)
		s.True(res.Available)
		s.Equal("other.net", res.Domain)
	})

	s.Run("ErrCount above zero is a rejected error with registrar text", func() {
		s.fake.handle(commandCheck, func(url.Values) (int, string) {
			return http.StatusOK, `<interface-response>
  <ErrCount>1</ErrCount>
  <errors><Err1>Domain name not valid for this TLD</Err1></errors>
  <Done>true</Done>
</interface-response>`
		})
		_, err := s.client.CheckAvailability(ctx, "bad", "zz")
		s.Require().Error(err)
		s.True(IsRejected(err))
		s.Contains(err.Error(), "Domain name not valid for this TLD")
	})
}

func (s *ClientSuite) TestTransportFailures() {
	ctx := context.Background()

	s.Run("5xx is unavailable", func() {
		s.fake.handle(commandCheck, func(url.Values) (int, string) {
			return http.StatusServiceUnavailable, "down"
		})
		_, err := s.client.CheckAvailability(ctx, "a", "com")
		s.Equal(CategoryUnavailable, CategoryOf(err))
	})

	s.Run("garbage body is bad_response", func() {
		s.fake.handle(commandCheck, func(url.Values) (int, string) {
			return http.StatusOK, "<html>maintenance"
		})
		_, err := s.client.CheckAvailability(ctx, "a", "com")
		s.Equal(CategoryBadResponse, CategoryOf(err))
	})

	s.Run("slow registrar is a timeout", func() {
		release := make(chan struct{})
		defer close(release)
		s.fake.handle(commandCheck, func(url.Values) (int, string) {
			<-release
			return http.StatusOK, ""
		})
		client := New(Config{BaseURL: s.server.URL, Timeout: 50 * time.Millisecond})
		_, err := client.CheckAvailability(ctx, "a", "com")
		s.True(IsTimeout(err))
	})

	s.Run("caller cancellation after sending is canceled and spares the breaker", func() {
		arrived := make(chan struct{})
		s.fake.handle(commandPurchase, func(url.Values) (int, string) {
			close(arrived)
			time.Sleep(200 * time.Millisecond)
			return http.StatusOK, ""
		})
		breaker := circuit.New("registrar", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
		client := New(Config{BaseURL: s.server.URL, Timeout: time.Second}, WithBreaker(breaker))

		cctx, cancel := context.WithCancel(ctx)
		go func() {
			<-arrived
			cancel()
		}()
		_, err := client.Purchase(cctx, PurchaseRequest{SLD: "acme", TLD: "com"})
		s.Equal(CategoryCanceled, CategoryOf(err))
		s.True(IsAmbiguous(err))
		s.False(breaker.IsOpen())
	})

	s.Run("already cancelled context is not sent", func() {
		before := s.fake.calls()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.client.CheckAvailability(cctx, "a", "com")
		s.Equal(CategoryUnavailable, CategoryOf(err))
		s.False(IsAmbiguous(err))
		s.Equal(before, s.fake.calls())
	})

	s.Run("errors never carry the password", func() {
		client := New(Config{BaseURL: "http://127.0.0.1:1", Password: "s3cret", Timeout: time.Second})
		_, err := client.CheckAvailability(ctx, "a", "com")
		s.Require().Error(err)
		s.NotContains(err.Error(), "s3cret")
	})
}

func (s *ClientSuite) TestCheckManyIsPositional() {
	pairs := []DomainPair{{"fresh", "com"}, {"taken", "com"}, {"fresh", "io"}}
	results := s.client.CheckMany(context.Background(), pairs)
	s.Require().Len(results, 3)
	s.True(results[0].Available)
	s.False(results[1].Available)
	s.NoError(results[1].Err)
	s.True(results[2].Available)
	s.Equal("fresh.io", results[2].Domain)
}

func (s *ClientSuite) TestCheckManyFailureIsPerPair() {
	s.fake.handle(commandCheck, func(q url.Values) (int, string) {
		if q.Get("sld") == "broken" {
			return http.StatusBadGateway, ""
		}
		return http.StatusOK, `<interface-response><RRPCode>210</RRPCode><ErrCount>0</ErrCount></interface-response>`
	})
	results := s.client.CheckMany(context.Background(), []DomainPair{{"ok", "com"}, {"broken", "com"}})
	s.True(results[0].Available)
	s.False(results[1].Available)
	s.Error(results[1].Err)
	s.Equal("broken.com", results[1].Domain)
}

func (s *ClientSuite) TestCheckManyRespectsConcurrencyLimit() {
	var inFlight, peak atomic.Int32
	s.fake.handle(commandCheck, func(url.Values) (int, string) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return http.StatusOK, `<interface-response><RRPCode>210</RRPCode><ErrCount>0</ErrCount></interface-response>`
	})
	pairs := make([]DomainPair, 12)
	for i := range pairs {
		pairs[i] = DomainPair{SLD: fmt.Sprintf("name%d", i), TLD: "com"}
	}
	s.client.CheckMany(context.Background(), pairs)
	s.LessOrEqual(peak.Load(), int32(3))
}

func (s *ClientSuite) TestSuggestDomains() {
	results, err := s.client.SuggestDomains(context.Background(), "Acme", []string{"com", "io"})
	s.Require().NoError(err)
	s.Require().Len(results, 14)
	s.Equal("acme.com", results[0].Domain)
	s.Equal("acme.io", results[1].Domain)
	s.Equal("getacme.com", results[2].Domain)
}

func (s *ClientSuite) TestGetPricing() {
	s.fake.handle(commandPricing, func(q url.Values) (int, string) {
		return http.StatusOK, `<interface-response>
  <RegistrationPrice>12.99</RegistrationPrice>
  <RenewalPrice>14.50</RenewalPrice>
  <ErrCount>0</ErrCount>
</interface-response>`
	})

	p, err := s.client.GetPricing(context.Background(), "acme", "com", 3)
	s.Require().NoError(err)
	s.Equal(id.MustParseMoney("12.99"), p.RegistrationPrice)
	s.Equal(id.MustParseMoney("14.50"), p.RenewalPrice)
	s.Equal(id.Money(0), p.TransferPrice)
	s.Equal(id.MustParseMoney("38.97"), p.Total)
	s.Equal("3", s.fake.lastQuery().Get("NumYears"))

	s.Run("malformed price is bad_response", func() {
		s.fake.handle(commandPricing, func(url.Values) (int, string) {
			return http.StatusOK, `<interface-response><RegistrationPrice>n/a</RegistrationPrice><ErrCount>0</ErrCount></interface-response>`
		})
		_, err := s.client.GetPricing(context.Background(), "acme", "com", 1)
		s.Equal(CategoryBadResponse, CategoryOf(err))
	})
}

func (s *ClientSuite) TestPurchaseReplicatesContact() {
	s.fake.handle(commandPurchase, func(url.Values) (int, string) {
		return http.StatusOK, `<interface-response>
  <OrderID>157776345</OrderID>
  <RRPCode>200</RRPCode>
  <RRPText>Command completed successfully</RRPText>
  <ErrCount>0</ErrCount>
</interface-response>`
	})
	res, err := s.client.Purchase(context.Background(), PurchaseRequest{
		SLD:   "acme",
		TLD:   "com",
		Years: 2,
		Contact: Contact{
			FirstName: "Ana", LastName: "Ruiz", Email: "ana@acme.com", Phone: "+1.5555550100",
			Address1: "1 Main St", City: "Austin", State: "TX", PostalCode: "78701", Country: "US",
		},
	})
	s.Require().NoError(err)
	s.Equal("157776345", res.OrderID)
	s.Contains(res.RawResponse, "157776345")

	q := s.fake.lastQuery()
	s.Equal("2", q.Get("NumYears"))
	for _, role := range []string{"Registrant", "Admin", "Tech", "AuxBilling"} {
		s.Equal("Ana", q.Get(role+"FirstName"), role)
		s.Equal("ana@acme.com", q.Get(role+"EmailAddress"), role)
		s.Equal("US", q.Get(role+"Country"), role)
	}
}

func (s *ClientSuite) TestRejectionKeepsRegistrarCodeAndBody() {
	s.fake.handle(commandPurchase, func(url.Values) (int, string) {
		return http.StatusOK, `<interface-response>
  <RRPCode>540</RRPCode>
  <ErrCount>1</ErrCount>
  <errors><Err1>Domain name not available</Err1></errors>
</interface-response>`
	})
	_, err := s.client.Purchase(context.Background(), PurchaseRequest{SLD: "acme", TLD: "com"})
	s.Require().Error(err)
	s.True(IsRejected(err))

	code, raw := Detail(err)
	s.Equal("540", code)
	s.Contains(raw, "<Err1>Domain name not available</Err1>")
	s.Contains(err.Error(), "540")
	s.Contains(err.Error(), "Domain name not available")
}

func (s *ClientSuite) TestPurchaseEmptyOrderIDIsSurfaced() {
	s.fake.handle(commandPurchase, func(url.Values) (int, string) {
		return http.StatusOK, `<interface-response><RRPCode>200</RRPCode><ErrCount>0</ErrCount></interface-response>`
	})
	res, err := s.client.Purchase(context.Background(), PurchaseRequest{SLD: "acme", TLD: "com"})
	s.Require().NoError(err)
	s.Empty(res.OrderID)
}

func (s *ClientSuite) TestGetBalance() {
	s.fake.handle(commandGetBalance, func(url.Values) (int, string) {
		return http.StatusOK, `<interface-response><Balance>100.00</Balance><AvailableBalance>87.25</AvailableBalance><ErrCount>0</ErrCount></interface-response>`
	})
	balance, err := s.client.GetBalance(context.Background())
	s.Require().NoError(err)
	s.Equal(id.MustParseMoney("87.25"), balance)
}

func (s *ClientSuite) TestMetricsRecordOutcome() {
	_, err := s.client.CheckAvailability(context.Background(), "fresh", "com")
	s.Require().NoError(err)
	s.Equal(1, testutil.CollectAndCount(s.metrics.CallDuration))
}

func TestCircuitBreakerFailsFast(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	breaker := circuit.New("registrar", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	client := New(Config{BaseURL: server.URL, Timeout: time.Second}, WithBreaker(breaker), WithMetrics(m))

	for i := 0; i < 2; i++ {
		_, err := client.GetBalance(context.Background())
		require.Equal(t, CategoryUnavailable, CategoryOf(err))
	}
	assert.True(t, breaker.IsOpen())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CircuitOpen))

	_, err := client.GetBalance(context.Background())
	require.Equal(t, CategoryUnavailable, CategoryOf(err))
	assert.True(t, strings.Contains(err.Error(), "circuit open"))
	assert.Equal(t, int32(2), hits.Load())
}
