package aras

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// ShipmentOrder is the data SetOrder registers with the carrier. The
// integration code is the caller's stable key for the shipment; all later
// queries use it.
type ShipmentOrder struct {
	IntegrationCode string
	ReceiverName    string
	ReceiverAddress string
	ReceiverPhone   string
	ReceiverCity    string
	ReceiverTown    string
	PieceCount      int
}

type SetOrderResult struct {
	ResultCode     string
	Message        string
	TrackingNumber string
}

type setOrderRequest struct {
	XMLName   xml.Name `xml:"http://tempuri.org/ SetOrder"`
	OrderInfo struct {
		Order setOrderXML `xml:"Order"`
	} `xml:"orderInfo"`
	UserName     string `xml:"userName"`
	Password     string `xml:"password"`
	CustomerCode string `xml:"customerCode"`
}

type setOrderXML struct {
	UserName             string `xml:"UserName"`
	Password             string `xml:"Password"`
	TradingWaybillNumber string `xml:"TradingWaybillNumber"`
	IntegrationCode      string `xml:"IntegrationCode"`
	ReceiverName         string `xml:"ReceiverName"`
	ReceiverAddress      string `xml:"ReceiverAddress"`
	ReceiverPhone1       string `xml:"ReceiverPhone1"`
	ReceiverCityName     string `xml:"ReceiverCityName"`
	ReceiverTownName     string `xml:"ReceiverTownName"`
	PieceCount           int    `xml:"PieceCount"`
	PayorTypeCode        int    `xml:"PayorTypeCode"`
	IsWorldWide          string `xml:"IsWorldWide"`
}

type setOrderResponse struct {
	XMLName xml.Name             `xml:"Envelope"`
	Results []setOrderResultInfo `xml:"Body>SetOrderResponse>SetOrderResult>OrderResultInfo"`
}

type setOrderResultInfo struct {
	ResultCode    string `xml:"ResultCode"`
	ResultMessage string `xml:"ResultMessage"`
	InvoiceKey    string `xml:"InvoiceKey"`
	BarcodeNumber string `xml:"BarcodeNumber"`
}

// SetOrder registers a shipment. Result code "0" is the only success; the
// tracking number is taken from InvoiceKey, then BarcodeNumber, and falls
// back to the integration code when the carrier returns neither.
func (c *Client) SetOrder(ctx context.Context, order ShipmentOrder) (*SetOrderResult, error) {
	if order.PieceCount < 1 {
		order.PieceCount = 1
	}

	req := setOrderRequest{
		UserName:     c.cfg.Username,
		Password:     c.cfg.Password,
		CustomerCode: c.cfg.CustomerCode,
	}
	req.OrderInfo.Order = setOrderXML{
		UserName:         c.cfg.Username,
		Password:         c.cfg.Password,
		IntegrationCode:  order.IntegrationCode,
		ReceiverName:     order.ReceiverName,
		ReceiverAddress:  order.ReceiverAddress,
		ReceiverPhone1:   order.ReceiverPhone,
		ReceiverCityName: order.ReceiverCity,
		ReceiverTownName: order.ReceiverTown,
		PieceCount:       order.PieceCount,
		PayorTypeCode:    1,
		IsWorldWide:      "0",
	}

	body, err := c.call(ctx, "SetOrder", req)
	if err != nil {
		return nil, err
	}

	var resp setOrderResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unreadable SetOrder response: %v", ErrCarrierUnavailable, err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: empty SetOrder response", ErrCarrierUnavailable)
	}

	info := resp.Results[0]
	result := &SetOrderResult{
		ResultCode: strings.TrimSpace(info.ResultCode),
		Message:    strings.TrimSpace(info.ResultMessage),
	}
	if result.ResultCode != "0" {
		return result, fmt.Errorf("%w: code %s: %s", ErrOrderRejected, result.ResultCode, result.Message)
	}

	switch {
	case strings.TrimSpace(info.InvoiceKey) != "":
		result.TrackingNumber = strings.TrimSpace(info.InvoiceKey)
	case strings.TrimSpace(info.BarcodeNumber) != "":
		result.TrackingNumber = strings.TrimSpace(info.BarcodeNumber)
	default:
		result.TrackingNumber = order.IntegrationCode
	}

	c.logger.InfoContext(ctx, "shipment registered",
		"integration_code", order.IntegrationCode,
		"tracking_number", result.TrackingNumber)
	return result, nil
}

// StatusResult is the carrier's answer for one shipment.
type StatusResult struct {
	StatusText     string
	Delivered      bool
	TrackingNumber string
}

type queryStatusRequest struct {
	XMLName         xml.Name `xml:"http://tempuri.org/ GetOrderWithIntegrationCode"`
	UserName        string   `xml:"userName"`
	Password        string   `xml:"password"`
	CustomerCode    string   `xml:"customerCode"`
	IntegrationCode string   `xml:"integrationCode"`
}

// Legacy responses name the same values differently depending on the
// backend revision that answered; each list is tried in order.
var (
	statusTextFields = []string{"durumu", "durum", "kargo_durumu", "cargo_status", "status"}
	deliveredFields  = []string{"teslim_edildi", "teslim", "delivered", "is_delivered"}
	trackingFields   = []string{"kargo_takip_no", "takip_no", "invoice_key", "invoicekey", "barcode_number", "barcodenumber"}
)

// QueryStatus asks the carrier where a shipment is. Delivery is reported
// when the explicit flag says so or the status text mentions delivery.
func (c *Client) QueryStatus(ctx context.Context, integrationCode string) (*StatusResult, error) {
	req := queryStatusRequest{
		UserName:        c.cfg.Username,
		Password:        c.cfg.Password,
		CustomerCode:    c.cfg.CustomerCode,
		IntegrationCode: integrationCode,
	}

	body, err := c.call(ctx, "GetOrderWithIntegrationCode", req)
	if err != nil {
		return nil, err
	}

	fields := scanLeafFields(body)
	statusText := firstNonEmpty(fields, statusTextFields)
	if statusText == "" && firstNonEmpty(fields, trackingFields) == "" {
		return nil, fmt.Errorf("%w: integration code %s", ErrShipmentNotFound, integrationCode)
	}

	result := &StatusResult{
		StatusText:     statusText,
		TrackingNumber: firstNonEmpty(fields, trackingFields),
	}

	flag := firstNonEmpty(fields, deliveredFields)
	result.Delivered = flag == "1" || strings.EqualFold(flag, "true") ||
		containsTurkishFold(statusText, "teslim")

	return result, nil
}

type fetchLabelRequest struct {
	XMLName         xml.Name `xml:"http://tempuri.org/ GetBarcodePdf"`
	UserName        string   `xml:"userName"`
	Password        string   `xml:"password"`
	CustomerCode    string   `xml:"customerCode"`
	IntegrationCode string   `xml:"integrationCode"`
}

var labelFields = []string{"getbarcodepdfresult", "labelpdf", "pdf", "barcode_pdf"}

// FetchLabel downloads the shipment label PDF, returned base64-encoded by
// the carrier.
func (c *Client) FetchLabel(ctx context.Context, integrationCode string) ([]byte, error) {
	req := fetchLabelRequest{
		UserName:        c.cfg.Username,
		Password:        c.cfg.Password,
		CustomerCode:    c.cfg.CustomerCode,
		IntegrationCode: integrationCode,
	}

	body, err := c.call(ctx, "GetBarcodePdf", req)
	if err != nil {
		return nil, err
	}

	fields := scanLeafFields(body)
	encoded := firstNonEmpty(fields, labelFields)
	if encoded == "" {
		return nil, fmt.Errorf("%w: integration code %s", ErrLabelUnavailable, integrationCode)
	}

	pdf, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: label payload not base64", ErrLabelUnavailable)
	}
	return pdf, nil
}

// PickupRequest schedules a courier visit for a registered shipment.
type PickupRequest struct {
	IntegrationCode string
	Date            time.Time
	TimeWindow      string // "13:00-17:00"
}

type pickupSOAPRequest struct {
	XMLName         xml.Name `xml:"http://tempuri.org/ SetPickupRequest"`
	UserName        string   `xml:"userName"`
	Password        string   `xml:"password"`
	CustomerCode    string   `xml:"customerCode"`
	IntegrationCode string   `xml:"integrationCode"`
	PickupDate      string   `xml:"pickupDate"`
	TimeWindowStart string   `xml:"timeWindowStart"`
	TimeWindowEnd   string   `xml:"timeWindowEnd"`
}

var pickupRefFields = []string{"setpickuprequestresult", "pickup_reference", "pickupref", "reference"}

// RequestPickup schedules the pickup and returns the carrier's reference.
func (c *Client) RequestPickup(ctx context.Context, pickup PickupRequest) (string, error) {
	start, end := splitWindow(pickup.TimeWindow)
	req := pickupSOAPRequest{
		UserName:        c.cfg.Username,
		Password:        c.cfg.Password,
		CustomerCode:    c.cfg.CustomerCode,
		IntegrationCode: pickup.IntegrationCode,
		PickupDate:      pickup.Date.Format("2006-01-02"),
		TimeWindowStart: start,
		TimeWindowEnd:   end,
	}

	body, err := c.call(ctx, "SetPickupRequest", req)
	if err != nil {
		return "", err
	}

	fields := scanLeafFields(body)
	ref := firstNonEmpty(fields, pickupRefFields)
	if ref == "" {
		return "", fmt.Errorf("%w: pickup request returned no reference", ErrOrderRejected)
	}
	return ref, nil
}

func splitWindow(window string) (string, string) {
	parts := strings.SplitN(window, "-", 2)
	if len(parts) != 2 {
		return "13:00", "17:00"
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// scanLeafFields walks the response and records the first text value seen
// for every leaf element, keyed by lowercased local name. The carrier wraps
// rows in a diffgram whose exact nesting varies between backend revisions;
// scanning leaves is the only stable way to read it.
func scanLeafFields(body []byte) map[string]string {
	fields := make(map[string]string)
	decoder := xml.NewDecoder(bytes.NewReader(body))

	var current string
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			current = strings.ToLower(t.Name.Local)
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if current == "" || text == "" {
				continue
			}
			if _, seen := fields[current]; !seen {
				fields[current] = text
			}
		case xml.EndElement:
			current = ""
		}
	}
	return fields
}

func firstNonEmpty(fields map[string]string, names []string) string {
	for _, name := range names {
		if v := fields[name]; v != "" {
			return v
		}
	}
	return ""
}

// containsTurkishFold reports whether s contains substr after lowering both
// with Turkish casing rules, so İ and I fold the way the carrier spells
// status texts.
func containsTurkishFold(s, substr string) bool {
	return strings.Contains(toLowerTurkish(s), toLowerTurkish(substr))
}
