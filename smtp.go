package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// smtpPorts is the ordered port list the prober walks per MX host.
// Port 25 is widely blocked on outbound residential/cloud links; 587
// and 2525 are common alternates that prove the MX is reachable even
// when 25 is filtered.
var smtpPorts = []int{25, 587, 2525}

const (
	smtpPortDeadline = 3 * time.Second
	smtpMailFrom     = "test@example.com"
)

// blockKeywords are matched case-insensitively against a 550 message
// to distinguish a policy/IP block from a genuine "user unknown".
var blockKeywords = []string{"block", "denied", "policy", "spam", "sender", "verify", "verification"}

// ProxyConfig holds optional SOCKS5 egress settings for the prober.
type ProxyConfig struct {
	Address  string
	Username string
	Password string
}

// SMTPProber performs the staged SMTP handshake described in
// spec.md §4.5 against a single MX host.
type SMTPProber struct {
	heloHostname string
	proxy        *ProxyConfig
}

func NewSMTPProber(heloHostname string, proxyCfg *ProxyConfig) *SMTPProber {
	return &SMTPProber{heloHostname: heloHostname, proxy: proxyCfg}
}

// Probe walks smtpPorts in order against mxHost, probing address via
// RCPT TO. It never sends DATA. On exhaustion of every port at the
// transport layer, it returns the class of the most recent failure,
// biased toward unknown_timeout if any port timed out.
func (p *SMTPProber) Probe(ctx context.Context, address, mxHost string) ProbeResult {
	var last ProbeResult
	sawTimeout := false

	for _, port := range smtpPorts {
		result, transportFailed := p.probePort(ctx, address, mxHost, port)
		if !transportFailed {
			return result
		}
		if result.Outcome == ProbeUnknownTimeout {
			sawTimeout = true
		}
		last = result
	}

	if sawTimeout {
		last.Outcome = ProbeUnknownTimeout
	}
	return last
}

// probePort runs one full attempt against mxHost:port. The second
// return value is true when the failure was at the transport/protocol
// layer (caller should advance to the next port) and false when a
// definitive RCPT-derived outcome was reached.
func (p *SMTPProber) probePort(ctx context.Context, address, mxHost string, port int) (ProbeResult, bool) {
	start := time.Now()
	deadline := start.Add(smtpPortDeadline)

	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, err := p.dial(dialCtx, mxHost, port)
	if err != nil {
		return ProbeResult{Outcome: classifyDialError(err), Message: fmt.Sprintf("connect to %s:%d failed: %v", mxHost, port, err)}, true
	}
	defer conn.Close()
	conn.SetDeadline(deadline)

	reader := bufio.NewReader(conn)

	code, _, err := readSMTPResponse(reader)
	if err != nil || code != 220 {
		return ProbeResult{Outcome: classifyReadError(err), Message: fmt.Sprintf("greeting error on port %d", port)}, true
	}

	if err := writeSMTPLine(conn, "HELO "+p.heloHostname); err != nil {
		return ProbeResult{Outcome: classifyReadError(err), Message: "failed to send HELO"}, true
	}
	code, _, err = readSMTPResponse(reader)
	if err != nil || code != 250 {
		return ProbeResult{Outcome: classifyReadError(err), Message: fmt.Sprintf("HELO rejected on port %d", port)}, true
	}

	conn, reader = p.tryStartTLS(conn, reader, mxHost)

	if err := writeSMTPLine(conn, "MAIL FROM:<"+smtpMailFrom+">"); err != nil {
		return ProbeResult{Outcome: classifyReadError(err), Message: "failed to send MAIL FROM"}, true
	}
	code, _, err = readSMTPResponse(reader)
	if err != nil || code != 250 {
		return ProbeResult{Outcome: classifyReadError(err), Message: fmt.Sprintf("MAIL FROM rejected on port %d", port)}, true
	}

	if err := writeSMTPLine(conn, "RCPT TO:<"+address+">"); err != nil {
		return ProbeResult{Outcome: classifyReadError(err), Message: "failed to send RCPT TO"}, true
	}
	code, message, err := readSMTPResponse(reader)
	if err != nil {
		return ProbeResult{Outcome: classifyReadError(err), Message: "failed to read RCPT TO response"}, true
	}

	writeSMTPLine(conn, "QUIT")

	return classifyRCPTReply(code, message), false
}

// tryStartTLS attempts STARTTLS. Any failure (not just "not
// supported") is swallowed and the probe continues in cleartext on
// the original connection/reader.
func (p *SMTPProber) tryStartTLS(conn net.Conn, reader *bufio.Reader, mxHost string) (net.Conn, *bufio.Reader) {
	if err := writeSMTPLine(conn, "STARTTLS"); err != nil {
		return conn, reader
	}
	code, _, err := readSMTPResponse(reader)
	if err != nil || code != 220 {
		return conn, reader
	}

	tlsConn := tls.Client(conn, &tls.Config{ServerName: mxHost, InsecureSkipVerify: true})
	if err := tlsConn.Handshake(); err != nil {
		return conn, reader
	}

	secureReader := bufio.NewReader(tlsConn)
	if err := writeSMTPLine(tlsConn, "HELO "+p.heloHostname); err != nil {
		return conn, reader
	}
	if code, _, err := readSMTPResponse(secureReader); err != nil || code != 250 {
		return conn, reader
	}

	return tlsConn, secureReader
}

func (p *SMTPProber) dial(ctx context.Context, host string, port int) (net.Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	if p.proxy == nil || p.proxy.Address == "" {
		d := net.Dialer{}
		return d.DialContext(ctx, "tcp", addr)
	}

	var auth *proxy.Auth
	if p.proxy.Username != "" {
		auth = &proxy.Auth{User: p.proxy.Username, Password: p.proxy.Password}
	}
	dialer, err := proxy.SOCKS5("tcp", p.proxy.Address, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer: %w", err)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := dialer.Dial("tcp", addr)
		ch <- dialResult{conn, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("socks5 dial: %w", res.err)
		}
		return res.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func writeSMTPLine(conn net.Conn, line string) error {
	_, err := conn.Write([]byte(line + "\r\n"))
	return err
}

// readSMTPResponse reads one SMTP reply, following "code-text"
// continuation lines until a "code text" (space separator) terminal
// line, and returns the code plus the full joined message text.
func readSMTPResponse(reader *bufio.Reader) (int, string, error) {
	var messages []string
	var code int

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, "", err
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 4 {
			return 0, "", errors.New("malformed SMTP response: " + line)
		}
		lineCode, err := strconv.Atoi(line[:3])
		if err != nil {
			return 0, "", fmt.Errorf("malformed SMTP response code: %w", err)
		}
		code = lineCode
		messages = append(messages, line[4:])
		if line[3] == ' ' {
			break
		}
	}

	return code, strings.Join(messages, " "), nil
}

func classifyDialError(err error) ProbeOutcome {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProbeUnknownTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ProbeUnknownTimeout
	}
	if isConnRefused(err) {
		return ProbeUnknownRefused
	}
	return ProbeUnknownConnect
}

func classifyReadError(err error) ProbeOutcome {
	if err == nil {
		return ProbeUnknown
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProbeUnknownTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ProbeUnknownTimeout
	}
	if isConnRefused(err) {
		return ProbeUnknownRefused
	}
	return ProbeUnknown
}

func isConnRefused(err error) bool {
	return strings.Contains(err.Error(), "connection refused")
}

// classifyRCPTReply maps the RCPT reply code (and, for 550, its
// message text) onto the final ProbeOutcome taxonomy.
func classifyRCPTReply(code int, message string) ProbeResult {
	lower := strings.ToLower(message)

	switch {
	case code == 250:
		return ProbeResult{Outcome: ProbeValid, Message: "SMTP OK"}
	case code == 550:
		for _, kw := range blockKeywords {
			if strings.Contains(lower, kw) {
				return ProbeResult{Outcome: ProbeUnknownBlock, Message: "Server Blocked/Rejected (550): " + message}
			}
		}
		return ProbeResult{Outcome: ProbeInvalid, Message: "User does not exist (550)"}
	case code == 450 || code == 451 || code == 452:
		return ProbeResult{Outcome: ProbeUnknown, Message: "Greylisted / Rate Limited"}
	case code == 530 || strings.Contains(lower, "authentication required"):
		return ProbeResult{Outcome: ProbeUnknownAuth, Message: fmt.Sprintf("Authentication Required (code %d)", code)}
	default:
		return ProbeResult{Outcome: ProbeUnknown, Message: fmt.Sprintf("Server returned code %d: %s", code, message)}
	}
}
