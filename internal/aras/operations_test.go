package aras

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:      server.URL,
		Username:     "user",
		Password:     "pass",
		CustomerCode: "C123",
	}, slog.Default())
	return client, server
}

func soapResponse(inner string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>` + inner + `</soap:Body>
</soap:Envelope>`
}

func TestSetOrder_Success(t *testing.T) {
	var gotAction string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.Header.Get("SOAPAction")
		fmt.Fprint(w, soapResponse(`
			<SetOrderResponse xmlns="http://tempuri.org/">
				<SetOrderResult>
					<OrderResultInfo>
						<ResultCode>0</ResultCode>
						<ResultMessage>Islem Basarili</ResultMessage>
						<InvoiceKey>INV-777</InvoiceKey>
						<BarcodeNumber>BC-111</BarcodeNumber>
					</OrderResultInfo>
				</SetOrderResult>
			</SetOrderResponse>`))
	})

	result, err := client.SetOrder(context.Background(), ShipmentOrder{
		IntegrationCode: "order-1",
		ReceiverName:    "Ayşe Yılmaz",
		ReceiverCity:    "İstanbul",
	})

	require.NoError(t, err)
	assert.Equal(t, "0", result.ResultCode)
	assert.Equal(t, "INV-777", result.TrackingNumber, "InvoiceKey wins over BarcodeNumber")
	assert.Equal(t, "http://tempuri.org/SetOrder", gotAction)
}

func TestSetOrder_BarcodeFallback(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<SetOrderResponse xmlns="http://tempuri.org/">
				<SetOrderResult>
					<OrderResultInfo>
						<ResultCode>0</ResultCode>
						<BarcodeNumber>BC-111</BarcodeNumber>
					</OrderResultInfo>
				</SetOrderResult>
			</SetOrderResponse>`))
	})

	result, err := client.SetOrder(context.Background(), ShipmentOrder{IntegrationCode: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, "BC-111", result.TrackingNumber)
}

func TestSetOrder_IntegrationCodeFallback(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<SetOrderResponse xmlns="http://tempuri.org/">
				<SetOrderResult>
					<OrderResultInfo><ResultCode>0</ResultCode></OrderResultInfo>
				</SetOrderResult>
			</SetOrderResponse>`))
	})

	result, err := client.SetOrder(context.Background(), ShipmentOrder{IntegrationCode: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, "order-1", result.TrackingNumber)
}

func TestSetOrder_Rejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<SetOrderResponse xmlns="http://tempuri.org/">
				<SetOrderResult>
					<OrderResultInfo>
						<ResultCode>12</ResultCode>
						<ResultMessage>Mukerrer kayit</ResultMessage>
					</OrderResultInfo>
				</SetOrderResult>
			</SetOrderResponse>`))
	})

	result, err := client.SetOrder(context.Background(), ShipmentOrder{IntegrationCode: "order-1"})
	assert.ErrorIs(t, err, ErrOrderRejected)
	require.NotNil(t, result)
	assert.Equal(t, "12", result.ResultCode)
	assert.Contains(t, err.Error(), "Mukerrer kayit")
}

func TestQueryStatus_StatusAndTracking(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<GetOrderWithIntegrationCodeResponse xmlns="http://tempuri.org/">
				<GetOrderWithIntegrationCodeResult>
					<diffgram><NewDataSet><Table>
						<DURUMU>YOLDA</DURUMU>
						<TESLIM_EDILDI>0</TESLIM_EDILDI>
						<KARGO_TAKIP_NO>TRK-42</KARGO_TAKIP_NO>
					</Table></NewDataSet></diffgram>
				</GetOrderWithIntegrationCodeResult>
			</GetOrderWithIntegrationCodeResponse>`))
	})

	result, err := client.QueryStatus(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "YOLDA", result.StatusText)
	assert.Equal(t, "TRK-42", result.TrackingNumber)
	assert.False(t, result.Delivered)
}

func TestQueryStatus_DeliveredFlag(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<GetOrderWithIntegrationCodeResponse xmlns="http://tempuri.org/">
				<GetOrderWithIntegrationCodeResult>
					<Table>
						<DURUM>ALICIYA TESLIM EDILDI</DURUM>
						<TESLIM_EDILDI>1</TESLIM_EDILDI>
					</Table>
				</GetOrderWithIntegrationCodeResult>
			</GetOrderWithIntegrationCodeResponse>`))
	})

	result, err := client.QueryStatus(context.Background(), "order-1")
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.Equal(t, "ALICIYA TESLIM EDILDI", result.StatusText)
}

func TestQueryStatus_DeliveredFromTextOnly(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<GetOrderWithIntegrationCodeResponse xmlns="http://tempuri.org/">
				<GetOrderWithIntegrationCodeResult>
					<Table><DURUMU>TESLİM EDİLDİ</DURUMU></Table>
				</GetOrderWithIntegrationCodeResult>
			</GetOrderWithIntegrationCodeResponse>`))
	})

	result, err := client.QueryStatus(context.Background(), "order-1")
	require.NoError(t, err)
	assert.True(t, result.Delivered)
}

func TestQueryStatus_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<GetOrderWithIntegrationCodeResponse xmlns="http://tempuri.org/">
				<GetOrderWithIntegrationCodeResult></GetOrderWithIntegrationCodeResult>
			</GetOrderWithIntegrationCodeResponse>`))
	})

	result, err := client.QueryStatus(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrShipmentNotFound)
	assert.Nil(t, result)
}

func TestFetchLabel_DecodesBase64(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake label")
	encoded := base64.StdEncoding.EncodeToString(pdf)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<GetBarcodePdfResponse xmlns="http://tempuri.org/">
				<GetBarcodePdfResult>`+encoded+`</GetBarcodePdfResult>
			</GetBarcodePdfResponse>`))
	})

	got, err := client.FetchLabel(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, pdf, got)
}

func TestFetchLabel_Empty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<GetBarcodePdfResponse xmlns="http://tempuri.org/">
				<GetBarcodePdfResult></GetBarcodePdfResult>
			</GetBarcodePdfResponse>`))
	})

	got, err := client.FetchLabel(context.Background(), "order-1")
	assert.ErrorIs(t, err, ErrLabelUnavailable)
	assert.Nil(t, got)
}

func TestRequestPickup_ReturnsReference(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<SetPickupRequestResponse xmlns="http://tempuri.org/">
				<SetPickupRequestResult>PCK-2024-01</SetPickupRequestResult>
			</SetPickupRequestResponse>`))
	})

	ref, err := client.RequestPickup(context.Background(), PickupRequest{
		IntegrationCode: "order-1",
		TimeWindow:      "13:00-17:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "PCK-2024-01", ref)
}

func TestCall_SOAPFault(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapResponse(`
			<soap:Fault>
				<faultcode>soap:Server</faultcode>
				<faultstring>Internal error</faultstring>
			</soap:Fault>`))
	})

	_, err := client.QueryStatus(context.Background(), "order-1")
	assert.ErrorIs(t, err, ErrCarrierUnavailable)
	assert.Contains(t, err.Error(), "Internal error")
}

func TestCall_CircuitBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 7; i++ {
		_, err := client.QueryStatus(context.Background(), "order-1")
		assert.ErrorIs(t, err, ErrCarrierUnavailable)
	}

	// After five consecutive failures the breaker stops calling out.
	assert.Equal(t, int32(5), hits.Load())
}

func TestSplitWindow(t *testing.T) {
	start, end := splitWindow("09:30-12:00")
	assert.Equal(t, "09:30", start)
	assert.Equal(t, "12:00", end)

	start, end = splitWindow("garbage")
	assert.Equal(t, "13:00", start)
	assert.Equal(t, "17:00", end)
}
