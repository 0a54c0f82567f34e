package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gunaso/grievance-service/internal/config"
)

func TestNewEmailSenderFallsBackToLog(t *testing.T) {
	sender := NewEmailSender(config.MailConfig{}, nil)
	_, ok := sender.(*LogEmailSender)
	assert.True(t, ok)
	assert.NoError(t, sender.SendEmail(context.Background(), "s", "b", []string{"a@example.com"}))
}

type smtpSession struct {
	addr string
	auth string
	from string
	rcpt []string
	data string
}

// serveSMTP speaks just enough SMTP over conn to accept one message.
func serveSMTP(conn net.Conn, got *smtpSession) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		switch verb, _, _ := strings.Cut(line, " "); strings.ToUpper(verb) {
		case "EHLO":
			_ = tp.PrintfLine("250-localhost")
			_ = tp.PrintfLine("250 AUTH PLAIN")
		case "AUTH":
			got.auth = line
			_ = tp.PrintfLine("235 2.7.0 Authentication successful")
		case "MAIL":
			got.from = line
			_ = tp.PrintfLine("250 OK")
		case "RCPT":
			got.rcpt = append(got.rcpt, line)
			_ = tp.PrintfLine("250 OK")
		case "DATA":
			_ = tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			got.data = string(data)
			_ = tp.PrintfLine("250 OK")
		case "QUIT":
			_ = tp.PrintfLine("221 Bye")
			return
		default:
			_ = tp.PrintfLine("502 Command not implemented")
		}
	}
}

func pipeDialer(got *smtpSession) func(context.Context, string, string) (net.Conn, error) {
	return func(_ context.Context, _, addr string) (net.Conn, error) {
		got.addr = addr
		client, server := net.Pipe()
		go serveSMTP(server, got)
		return client, nil
	}
}

// stalledSMTP accepts connections and never sends a greeting.
func stalledSMTP(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var held []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			held = append(held, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range held {
			_ = conn.Close()
		}
	})
	return ln.Addr().(*net.TCPAddr).Port
}

func TestSMTPSenderDeliversMessage(t *testing.T) {
	got := &smtpSession{}
	sender := &SMTPSender{
		cfg:  config.MailConfig{Host: "localhost", Port: 587, Username: "u", Password: "p", From: "portal@example.com", Timeout: time.Second},
		dial: pipeDialer(got),
	}

	err := sender.SendEmail(context.Background(), "Update\nInjected: x", "line one\nline two", []string{"citizen@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:587", got.addr)
	assert.True(t, strings.HasPrefix(got.auth, "AUTH PLAIN "))
	assert.Equal(t, "MAIL FROM:<portal@example.com>", got.from)
	assert.Equal(t, []string{"RCPT TO:<citizen@example.com>"}, got.rcpt)
	assert.Contains(t, got.data, "Subject: Update Injected: x\n")
	assert.Contains(t, got.data, "line one\nline two")
}

func TestSMTPSenderWrapsFailure(t *testing.T) {
	sender := &SMTPSender{
		cfg: config.MailConfig{Host: "smtp.example.com", Port: 25, From: "portal@example.com"},
		dial: func(context.Context, string, string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	}
	err := sender.SendEmail(context.Background(), "s", "b", []string{"x@example.com"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestSMTPSenderStopsAtContextDeadline(t *testing.T) {
	port := stalledSMTP(t)
	sender := NewEmailSender(config.MailConfig{Host: "127.0.0.1", Port: port, From: "portal@example.com", Timeout: time.Minute}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := sender.SendEmail(ctx, "s", "b", []string{"x@example.com"})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSMTPSenderAppliesConfiguredTimeout(t *testing.T) {
	port := stalledSMTP(t)
	sender := NewEmailSender(config.MailConfig{Host: "127.0.0.1", Port: port, From: "portal@example.com", Timeout: 200 * time.Millisecond}, nil)

	start := time.Now()
	err := sender.SendEmail(context.Background(), "s", "b", []string{"x@example.com"})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGatewaySMSSender(t *testing.T) {
	var received smsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSMSSender(config.SMSConfig{GatewayURL: srv.URL, APIKey: "secret", Sender: "GUNASO"}, zap.NewNop())
	require.NoError(t, sender.SendSMS(context.Background(), "+9779800000000", "hello"))
	assert.Equal(t, "+9779800000000", received.To)
	assert.Equal(t, "hello", received.Message)
}

func TestGatewaySMSSenderReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sender := NewSMSSender(config.SMSConfig{GatewayURL: srv.URL}, nil)
	err := sender.SendSMS(context.Background(), "+1", "hi")
	assert.ErrorContains(t, err, "429")
}

func TestLogSMSSenderSimulates(t *testing.T) {
	sender := NewSMSSender(config.SMSConfig{}, nil)
	_, ok := sender.(*LogSMSSender)
	assert.True(t, ok)
	assert.NoError(t, sender.SendSMS(context.Background(), "+1", "hi"))
}
