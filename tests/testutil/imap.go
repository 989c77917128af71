// Package testutil provides shared helpers for integration tests.
package testutil

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

// TestMessage is one message to seed into a server mailbox.
type TestMessage struct {
	Raw   string
	Flags []imap.Flag
	Date  time.Time
}

// IMAPServer is an in-memory IMAP server behind a loopback TLS
// listener, holding a single account.
type IMAPServer struct {
	Host string
	Port int

	// TLSConfig makes clients accept the listener's self-signed
	// certificate.
	TLSConfig *tls.Config

	user *imapmemserver.User
}

// StartIMAPServer runs an in-memory IMAP server with one account and
// an empty INBOX on a random loopback port. The listener serves TLS
// with a throwaway self-signed certificate and shuts down when the
// test completes.
func StartIMAPServer(t *testing.T, username, password string) *IMAPServer {
	t.Helper()

	user := imapmemserver.NewUser(username, password)
	if err := user.Create("INBOX", nil); err != nil {
		t.Fatalf("creating INBOX: %v", err)
	}
	mem := imapmemserver.New()
	mem.AddUser(user)

	server := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Logger: testLogger{t},
	})

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	serverCfg, clientCfg := selfSignedTLS(t)
	go server.Serve(tls.NewListener(ln, serverCfg))
	t.Cleanup(func() {
		if err := server.Close(); err != nil {
			t.Errorf("closing test server: %v", err)
		}
	})

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("splitting listener address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing listener port: %v", err)
	}

	return &IMAPServer{
		Host:      host,
		Port:      port,
		TLSConfig: clientCfg,
		user:      user,
	}
}

// CreateMailbox adds an empty mailbox to the account.
func (s *IMAPServer) CreateMailbox(t *testing.T, name string) {
	t.Helper()
	if err := s.user.Create(name, nil); err != nil {
		t.Fatalf("creating mailbox %s: %v", name, err)
	}
}

// Seed appends messages to a mailbox and returns their UIDs in append
// order.
func (s *IMAPServer) Seed(t *testing.T, mailbox string, msgs ...TestMessage) []string {
	t.Helper()

	uids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		date := msg.Date
		if date.IsZero() {
			date = time.Now()
		}
		data, err := s.user.Append(mailbox, literal(msg.Raw), &imap.AppendOptions{
			Flags: msg.Flags,
			Time:  date,
		})
		if err != nil {
			t.Fatalf("appending to %s: %v", mailbox, err)
		}
		uids = append(uids, strconv.FormatUint(uint64(data.UID), 10))
	}
	return uids
}

type literalReader struct {
	*bytes.Reader
	size int64
}

func (l literalReader) Size() int64 { return l.size }

func literal(raw string) imap.LiteralReader {
	return literalReader{Reader: bytes.NewReader([]byte(raw)), size: int64(len(raw))}
}

// testLogger routes server error output through the test log so it is
// shown only on failure.
type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(format string, args ...interface{}) {
	l.t.Logf(format, args...)
}

// selfSignedTLS generates a throwaway certificate for localhost and
// returns the server config serving it plus a client config trusting
// it.
func selfSignedTLS(t *testing.T) (*tls.Config, *tls.Config) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("generating serial number: %v", err)
	}
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatalf("parsing certificate: %v", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(cert)

	serverCfg := &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{certDER}, PrivateKey: key}},
		MinVersion:   tls.VersionTLS12,
	}
	clientCfg := &tls.Config{RootCAs: pool, ServerName: "localhost", MinVersion: tls.VersionTLS12}
	return serverCfg, clientCfg
}
