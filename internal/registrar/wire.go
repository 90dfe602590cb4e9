package registrar

import (
	"encoding/xml"
	"strconv"
	"strings"

	id "domainvault/pkg/domain"
)

// response is the registrar's XML envelope. Every command shares it and
// fills only the fields relevant to that command.
type response struct {
	XMLName       xml.Name  `xml:"interface-response"`
	Command       string    `xml:"Command"`
	ErrCount      string    `xml:"ErrCount"`
	Errors        errorList `xml:"errors"`
	RRPCode       string    `xml:"RRPCode"`
	RRPText       string    `xml:"RRPText"`
	DomainName    string    `xml:"DomainName"`
	IsPremiumName string    `xml:"IsPremiumName"`
	OrderID       string    `xml:"OrderID"`
	TrackingKey   string    `xml:"TrackingKey"`

	RegistrationPrice string `xml:"RegistrationPrice"`
	RenewalPrice      string `xml:"RenewalPrice"`
	TransferPrice     string `xml:"TransferPrice"`
	AvailableBalance  string `xml:"AvailableBalance"`
	Balance           string `xml:"Balance"`

	Done string `xml:"Done"`
}

// errorList holds <Err1>..<ErrN>; element names vary so they are read with ",any".
type errorList struct {
	Items []errorItem `xml:",any"`
}

type errorItem struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

func (r *response) errCount() (int, error) {
	raw := strings.TrimSpace(r.ErrCount)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (r *response) errorMessages() []string {
	msgs := make([]string, 0, len(r.Errors.Items))
	for _, item := range r.Errors.Items {
		if text := strings.TrimSpace(item.Text); text != "" {
			msgs = append(msgs, text)
		}
	}
	return msgs
}

func parseResponse(body []byte) (*response, error) {
	var r response
	if err := xml.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// parseAmount reads a registrar price. A missing field is zero.
func parseAmount(raw string) (id.Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return id.ParseMoney(raw)
}

func parseBool(raw string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(raw))
	return b
}
