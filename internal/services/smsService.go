package services

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultSMSTimeout = 10 * time.Second

// SMSConfig is handed to the gateway client at construction.
type SMSConfig struct {
	Endpoint string
	Username string
	Password string
	Timeout  time.Duration
}

// OTPRequestResult is the gateway's answer to a challenge request. Token is
// the correlation handle the subscriber echoes back together with the code
// they received by SMS.
type OTPRequestResult struct {
	Token   string
	Message string
}

// OTPConfirmResult reports a confirmed challenge. MobileNumber is the number
// the gateway actually delivered to and is authoritative for identity
// resolution.
type OTPConfirmResult struct {
	MobileNumber string
	Message      string
}

// GatewayError is a failure the gateway itself reported, as opposed to a
// transport problem reaching it.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	return e.Message
}

// SMSGateway is the SOAP OTP gateway the association's telecom partner runs.
type SMSGateway interface {
	RequestOTP(ctx context.Context, mobileNumber string) (*OTPRequestResult, error)
	ConfirmOTP(ctx context.Context, token, code string) (*OTPConfirmResult, error)
}

type smsGateway struct {
	cfg    SMSConfig
	client *http.Client
}

func NewSMSGateway(cfg SMSConfig) SMSGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMSTimeout
	}
	return &smsGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	NS      string   `xml:"xmlns:soapenv,attr"`
	Body    soapBody
}

// soapBody wraps the operation element; the inner value carries its own
// XMLName, so it cannot sit directly on the envelope without swallowing the
// Body element.
type soapBody struct {
	XMLName xml.Name `xml:"soapenv:Body"`
	Content interface{}
}

type requestOtpCall struct {
	XMLName      xml.Name `xml:"requestOtp"`
	Username     string   `xml:"username"`
	Password     string   `xml:"password"`
	MobileNumber string   `xml:"mobileNumber"`
}

type confirmOtpCall struct {
	XMLName  xml.Name `xml:"confirmOtp"`
	Username string   `xml:"username"`
	Password string   `xml:"password"`
	Token    string   `xml:"token"`
	Code     string   `xml:"code"`
}

type requestOtpResponse struct {
	Success bool   `xml:"success"`
	Token   string `xml:"token"`
	Message string `xml:"message"`
}

type confirmOtpResponse struct {
	Success      bool   `xml:"success"`
	MobileNumber string `xml:"mobileNumber"`
	Message      string `xml:"message"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

type responseEnvelope struct {
	Body struct {
		RequestOtpResponse *requestOtpResponse `xml:"requestOtpResponse"`
		ConfirmOtpResponse *confirmOtpResponse `xml:"confirmOtpResponse"`
		Fault              *soapFault          `xml:"Fault"`
	} `xml:"Body"`
}

func (g *smsGateway) RequestOTP(ctx context.Context, mobileNumber string) (*OTPRequestResult, error) {
	call := requestOtpCall{
		Username:     g.cfg.Username,
		Password:     g.cfg.Password,
		MobileNumber: mobileNumber,
	}

	env, err := g.roundTrip(ctx, "requestOtp", call)
	if err != nil {
		return nil, err
	}

	resp := env.Body.RequestOtpResponse
	if resp == nil {
		return nil, fmt.Errorf("sms gateway: malformed requestOtp response")
	}
	if !resp.Success {
		log.Warn().Str("mobile_number", mobileNumber).Str("gateway_message", resp.Message).Msg("SMS gateway rejected OTP request")
		return nil, &GatewayError{Message: resp.Message}
	}

	return &OTPRequestResult{Token: resp.Token, Message: resp.Message}, nil
}

func (g *smsGateway) ConfirmOTP(ctx context.Context, token, code string) (*OTPConfirmResult, error) {
	call := confirmOtpCall{
		Username: g.cfg.Username,
		Password: g.cfg.Password,
		Token:    token,
		Code:     code,
	}

	env, err := g.roundTrip(ctx, "confirmOtp", call)
	if err != nil {
		return nil, err
	}

	resp := env.Body.ConfirmOtpResponse
	if resp == nil {
		return nil, fmt.Errorf("sms gateway: malformed confirmOtp response")
	}
	if !resp.Success {
		log.Warn().Str("gateway_message", resp.Message).Msg("SMS gateway rejected OTP confirmation")
		return nil, &GatewayError{Message: resp.Message}
	}

	return &OTPConfirmResult{MobileNumber: resp.MobileNumber, Message: resp.Message}, nil
}

// roundTrip wraps body in a SOAP 1.1 envelope, posts it, and decodes the
// response envelope. Gateway faults come back as GatewayError.
func (g *smsGateway) roundTrip(ctx context.Context, action string, body interface{}) (*responseEnvelope, error) {
	envelope := soapEnvelope{
		NS:   "http://schemas.xmlsoap.org/soap/envelope/",
		Body: soapBody{Content: body},
	}

	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("sms gateway: encode %s: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, fmt.Errorf("sms gateway: build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	httpResp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sms gateway: %s call failed: %w", action, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("sms gateway: read %s response: %w", action, err)
	}

	var env responseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("sms gateway: decode %s response: %w", action, err)
	}

	if env.Body.Fault != nil {
		log.Warn().Str("action", action).Str("fault", env.Body.Fault.FaultString).Msg("SMS gateway returned SOAP fault")
		return nil, &GatewayError{Message: env.Body.Fault.FaultString}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sms gateway: %s returned status %d", action, httpResp.StatusCode)
	}

	return &env, nil
}
