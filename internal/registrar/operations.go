package registrar

import (
	"context"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	id "domainvault/pkg/domain"
)

// CheckResult is the availability of one name. Err is set only by CheckMany
// for a pair whose check failed.
type CheckResult struct {
	Domain    string `json:"domain"`
	SLD       string `json:"sld"`
	TLD       string `json:"tld"`
	Available bool   `json:"available"`
	Premium   bool   `json:"premium"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Err       error  `json:"-"`
}

// Pricing is the registrar's price for a name. Total is RegistrationPrice x Years.
type Pricing struct {
	Domain            string   `json:"domain"`
	Years             int      `json:"years"`
	RegistrationPrice id.Money `json:"registration_price"`
	RenewalPrice      id.Money `json:"renewal_price"`
	TransferPrice     id.Money `json:"transfer_price"`
	Total             id.Money `json:"total"`
}

// Contact is the single contact the caller supplies; the gateway replicates it
// into every role the registrar requires.
type Contact struct {
	FirstName    string
	LastName     string
	Organization string
	Email        string
	Phone        string
	Address1     string
	Address2     string
	City         string
	State        string
	PostalCode   string
	Country      string
}

type PurchaseRequest struct {
	SLD     string
	TLD     string
	Years   int
	Contact Contact
}

// PurchaseResult carries the registrar's order id verbatim; it may be empty.
type PurchaseResult struct {
	OrderID     string
	RRPCode     string
	RRPText     string
	RawResponse string
}

// contactRoles are the registrar's contact parameter prefixes.
var contactRoles = []string{"Registrant", "Admin", "Tech", "AuxBilling"}

// availableCodes are the RRP codes the registrar uses for an available name.
var availableCodes = map[string]bool{"210": true, "200": true}

// CheckAvailability asks whether sld.tld can be registered. Any RRP code other
// than an available one means unavailable; that is an answer, not an error.
func (c *Client) CheckAvailability(ctx context.Context, sld, tld string) (*CheckResult, error) {
	params := url.Values{"sld": {sld}, "tld": {tld}}
	resp, _, err := c.call(ctx, commandCheck, params)
	if err != nil {
		return nil, err
	}
	domain := resp.DomainName
	if domain == "" {
		domain = sld + "." + tld
	}
	return &CheckResult{
		Domain:    domain,
		SLD:       sld,
		TLD:       tld,
		Available: availableCodes[resp.RRPCode],
		Premium:   parseBool(resp.IsPremiumName),
		Code:      resp.RRPCode,
		Message:   resp.RRPText,
	}, nil
}

// CheckMany checks pairs with bounded concurrency. Results are aligned with
// pairs; a failed check yields Available=false with Err set.
func (c *Client) CheckMany(ctx context.Context, pairs []DomainPair) []CheckResult {
	results := make([]CheckResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i, p := range pairs {
		g.Go(func() error {
			res, err := c.CheckAvailability(gctx, p.SLD, p.TLD)
			if err != nil {
				c.logger.WarnContext(ctx, "registrar check failed",
					"domain", p.String(),
					"category", string(CategoryOf(err)),
					"error", err,
				)
				results[i] = CheckResult{Domain: p.String(), SLD: p.SLD, TLD: p.TLD, Err: err}
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// SuggestDomains checks the deterministic candidate set for keyword.
func (c *Client) SuggestDomains(ctx context.Context, keyword string, tlds []string) ([]CheckResult, error) {
	candidates, err := SuggestCandidates(keyword, tlds)
	if err != nil {
		return nil, err
	}
	return c.CheckMany(ctx, candidates), nil
}

// GetPricing returns registration, renewal and transfer prices for years.
func (c *Client) GetPricing(ctx context.Context, sld, tld string, years int) (*Pricing, error) {
	if years < 1 {
		years = 1
	}
	params := url.Values{"sld": {sld}, "tld": {tld}, "NumYears": {strconv.Itoa(years)}}
	resp, _, err := c.call(ctx, commandPricing, params)
	if err != nil {
		return nil, err
	}
	p := &Pricing{Domain: sld + "." + tld, Years: years}
	for _, f := range []struct {
		raw string
		dst *id.Money
	}{
		{resp.RegistrationPrice, &p.RegistrationPrice},
		{resp.RenewalPrice, &p.RenewalPrice},
		{resp.TransferPrice, &p.TransferPrice},
	} {
		v, err := parseAmount(f.raw)
		if err != nil {
			return nil, newError(CategoryBadResponse, commandPricing, err, "malformed price")
		}
		*f.dst = v
	}
	p.Total = p.RegistrationPrice.Times(years)
	return p, nil
}

// Purchase registers sld.tld. The contact is copied into every role. The
// registrar's order id is returned as-is, even when empty.
func (c *Client) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	years := req.Years
	if years < 1 {
		years = 1
	}
	params := url.Values{
		"sld":      {req.SLD},
		"tld":      {req.TLD},
		"NumYears": {strconv.Itoa(years)},
	}
	for _, role := range contactRoles {
		setContact(params, role, req.Contact)
	}

	resp, raw, err := c.call(ctx, commandPurchase, params)
	if err != nil {
		return nil, err
	}
	return &PurchaseResult{
		OrderID:     resp.OrderID,
		RRPCode:     resp.RRPCode,
		RRPText:     resp.RRPText,
		RawResponse: raw,
	}, nil
}

func setContact(params url.Values, role string, ct Contact) {
	params.Set(role+"FirstName", ct.FirstName)
	params.Set(role+"LastName", ct.LastName)
	params.Set(role+"OrganizationName", ct.Organization)
	params.Set(role+"EmailAddress", ct.Email)
	params.Set(role+"Phone", ct.Phone)
	params.Set(role+"Address1", ct.Address1)
	params.Set(role+"Address2", ct.Address2)
	params.Set(role+"City", ct.City)
	params.Set(role+"StateProvince", ct.State)
	params.Set(role+"PostalCode", ct.PostalCode)
	params.Set(role+"Country", ct.Country)
}
