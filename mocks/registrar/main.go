// Command registrar-mock serves the reseller query-string/XML interface for
// local development. Names are available until purchased or listed in
// MOCK_TAKEN; purchases return sequential order ids.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

type registrar struct {
	mu        sync.Mutex
	taken     map[string]bool
	nextOrder int
	balance   string
	delay     time.Duration
}

func newRegistrar(taken []string, delay time.Duration) *registrar {
	r := &registrar{taken: make(map[string]bool), nextOrder: 157000, balance: "1000.00", delay: delay}
	for _, name := range taken {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			r.taken[name] = true
		}
	}
	return r
}

func (r *registrar) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	q := req.URL.Query()
	name := strings.ToLower(q.Get("sld") + "." + q.Get("tld"))

	var body string
	switch strings.ToLower(q.Get("command")) {
	case "check":
		body = r.check(name)
	case "getdomainpricing":
		body = envelope("GETDOMAINPRICING", `<RegistrationPrice>12.00</RegistrationPrice>
  <RenewalPrice>14.00</RenewalPrice>
  <TransferPrice>10.00</TransferPrice>`)
	case "purchase":
		body = r.purchase(name)
	case "getbalance":
		r.mu.Lock()
		body = envelope("GETBALANCE", "<AvailableBalance>"+r.balance+"</AvailableBalance>")
		r.mu.Unlock()
	default:
		body = failure(strings.ToUpper(q.Get("command")), "Invalid command")
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(body))
}

func (r *registrar) check(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, text := "210", "Domain available"
	if r.taken[name] {
		code, text = "211", "Domain not available"
	}
	return envelope("CHECK", fmt.Sprintf(`<DomainName>%s</DomainName>
  <RRPCode>%s</RRPCode>
  <RRPText>%s</RRPText>
  <IsPremiumName>false</IsPremiumName>`, name, code, text))
}

func (r *registrar) purchase(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken[name] {
		return failure("PURCHASE", "Domain name not available")
	}
	r.taken[name] = true
	r.nextOrder++
	return envelope("PURCHASE", fmt.Sprintf(`<OrderID>%d</OrderID>
  <RRPCode>200</RRPCode>
  <RRPText>Command completed successfully</RRPText>`, r.nextOrder))
}

func envelope(command, inner string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<interface-response>
  %s
  <Command>%s</Command>
  <ErrCount>0</ErrCount>
  <Done>true</Done>
</interface-response>`, inner, command)
}

func failure(command, message string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<interface-response>
  <errors><Err1>%s</Err1></errors>
  <Command>%s</Command>
  <ErrCount>1</ErrCount>
  <Done>true</Done>
</interface-response>`, message, command)
}

func main() {
	addr := os.Getenv("MOCK_ADDR")
	if addr == "" {
		addr = ":8090"
	}
	delay, _ := time.ParseDuration(os.Getenv("MOCK_DELAY"))
	reg := newRegistrar(strings.Split(os.Getenv("MOCK_TAKEN"), ","), delay)

	mux := http.NewServeMux()
	mux.Handle("/interface.asp", reg)
	slog.Info("registrar mock listening", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("registrar mock stopped", "error", err)
		os.Exit(1)
	}
}
