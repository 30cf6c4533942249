package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go-profile-backend/config"

	"go.uber.org/zap"
)

// testAccountURL is the nodemailer/Ethereal endpoint that hands out
// disposable SMTP inboxes.
const testAccountURL = "https://api.nodemailer.com/user"

const testInboxFrom = "Profile App <no-reply@example.com>"

// Relay is an SMTP submission endpoint.
type Relay struct {
	Host     string
	Port     int
	Username string
	Password string
	// Secure selects implicit TLS (port 465) instead of STARTTLS.
	Secure bool
}

func (r Relay) addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// sendFunc submits a fully formed message.
type sendFunc func(ctx context.Context, relay Relay, from string, to []string, msg []byte) error

// EmailService sends OTP messages via SMTP. Without SMTP configuration it
// provisions a disposable Ethereal inbox per message and logs where to read it.
type EmailService struct {
	relay      Relay
	from       string
	configured bool
	log        *zap.Logger

	httpClient *http.Client
	accountURL string
	send       sendFunc
}

// NewEmailService creates a new email service from SMTP configuration
func NewEmailService(cfg *config.Config, log *zap.Logger) *EmailService {
	return &EmailService{
		relay: Relay{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			Secure:   cfg.SMTPPort == 465,
		},
		from:       cfg.SMTPFrom,
		configured: cfg.MailConfigured(),
		log:        log,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		accountURL: testAccountURL,
		send:       sendMail,
	}
}

// IsConfigured checks if the email service has a real SMTP relay
func (s *EmailService) IsConfigured() bool {
	return s.configured
}

type otpEmailData struct {
	Code          string
	ExpiryMinutes int
}

var otpHTMLTemplate = template.Must(template.New("otp").Parse(
	`<p>Your login code is <strong>{{.Code}}</strong>. It expires in {{.ExpiryMinutes}} minutes.</p>`))

const otpSubject = "Your profile login code"

// SendOTP mails a verification code to the given address.
func (s *EmailService) SendOTP(ctx context.Context, to, code string) error {
	data := otpEmailData{Code: code, ExpiryMinutes: 10}

	var html bytes.Buffer
	if err := otpHTMLTemplate.Execute(&html, data); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}
	text := fmt.Sprintf("Your login code is %s. It expires in %d minutes.", code, data.ExpiryMinutes)

	relay, from := s.relay, s.from
	var account *testAccount
	if !s.configured {
		var err error
		account, err = s.createTestAccount(ctx)
		if err != nil {
			return fmt.Errorf("failed to create test inbox: %w", err)
		}
		relay = account.relay()
		from = testInboxFrom
	}

	msg := buildMessage(from, to, otpSubject, text, html.String())
	if err := s.send(ctx, relay, addressOf(from), []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if account != nil {
		s.log.Info("OTP delivered to test inbox",
			zap.String("to", to),
			zap.String("inbox_user", account.User),
			zap.String("inbox_web", account.Web),
		)
	}
	return nil
}

// buildMessage renders a multipart/alternative message with text and HTML parts.
func buildMessage(from, to, subject, text, html string) []byte {
	const boundary = "profile-otp-boundary"
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, html)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.Bytes()
}

// addressOf strips a display name: "App <a@b.c>" -> "a@b.c".
func addressOf(from string) string {
	if start := strings.LastIndexByte(from, '<'); start >= 0 {
		if end := strings.LastIndexByte(from, '>'); end > start {
			return from[start+1 : end]
		}
	}
	return from
}

type testAccount struct {
	Status string `json:"status"`
	User   string `json:"user"`
	Pass   string `json:"pass"`
	Web    string `json:"web"`
	SMTP   struct {
		Host   string `json:"host"`
		Port   int    `json:"port"`
		Secure bool   `json:"secure"`
	} `json:"smtp"`
}

func (a *testAccount) relay() Relay {
	return Relay{Host: a.SMTP.Host, Port: a.SMTP.Port, Username: a.User, Password: a.Pass, Secure: a.SMTP.Secure}
}

func (s *EmailService) createTestAccount(ctx context.Context) (*testAccount, error) {
	body, _ := json.Marshal(map[string]string{"requestor": "go-profile-backend", "version": "1.0.0"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.accountURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("test account service returned %d", resp.StatusCode)
	}

	var account testAccount
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("failed to parse test account: %w", err)
	}
	if account.Status != "success" || account.SMTP.Host == "" {
		return nil, fmt.Errorf("test account service status %q", account.Status)
	}
	return &account, nil
}

// sendMail submits msg through relay, honouring ctx for the dial.
// Port 465 uses implicit TLS, anything else upgrades with STARTTLS when offered.
func sendMail(ctx context.Context, relay Relay, from string, to []string, msg []byte) error {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	tlsConfig := &tls.Config{ServerName: relay.Host, MinVersion: tls.VersionTLS12}

	var conn net.Conn
	var err error
	if relay.Secure {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", relay.addr())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", relay.addr())
	}
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, relay.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if !relay.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}

	if relay.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", relay.Username, relay.Password, relay.Host)); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
