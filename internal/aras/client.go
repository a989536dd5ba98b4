package aras

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

var (
	ErrCarrierUnavailable = errors.New("carrier service unavailable")
	ErrShipmentNotFound   = errors.New("shipment not found at carrier")
	ErrOrderRejected      = errors.New("carrier rejected the order")
	ErrLabelUnavailable   = errors.New("shipment label not available")
)

const soapNamespace = "http://tempuri.org/"

type Config struct {
	BaseURL      string
	Username     string
	Password     string
	CustomerCode string
	Timeout      time.Duration
}

// Client talks SOAP 1.1 to the Aras Kargo customer service. All calls run
// through a circuit breaker so a carrier outage fails fast instead of tying
// up checkout and sync workers.
type Client struct {
	httpClient *http.Client
	cfg        Config
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "aras-soap",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		breaker:    breaker,
		logger:     logger.With("component", "aras"),
	}
}

type soapEnvelope struct {
	XMLName   xml.Name    `xml:"soap:Envelope"`
	XMLNSSoap string      `xml:"xmlns:soap,attr"`
	Body      soapReqBody `xml:"soap:Body"`
}

type soapReqBody struct {
	Payload interface{}
}

// call marshals the operation payload into a SOAP envelope, posts it with
// the matching SOAPAction header, and returns the raw response body.
func (c *Client) call(ctx context.Context, action string, payload interface{}) ([]byte, error) {
	envelope := soapEnvelope{
		XMLNSSoap: "http://schemas.xmlsoap.org/soap/envelope/",
		Body:      soapReqBody{Payload: payload},
	}

	reqXML, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", action, err)
	}
	reqBody := append([]byte(xml.Header), reqXML...)

	data, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")
		req.Header.Set("SOAPAction", soapNamespace+action)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("carrier returned HTTP %d", resp.StatusCode)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrCarrierUnavailable)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCarrierUnavailable, action, err)
	}

	if fault := parseFault(data); fault != "" {
		return nil, fmt.Errorf("%w: soap fault: %s", ErrCarrierUnavailable, fault)
	}
	return data, nil
}

type faultEnvelope struct {
	XMLName     xml.Name `xml:"Envelope"`
	FaultString string   `xml:"Body>Fault>faultstring"`
}

func parseFault(body []byte) string {
	var f faultEnvelope
	if err := xml.Unmarshal(body, &f); err != nil {
		return ""
	}
	return f.FaultString
}
