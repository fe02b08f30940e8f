// Package main generates a Certificate Authority (CA) and a server
// certificate for running the development backend over HTTPS. Files are
// written under the "certs" directory; pass certs/ca.crt to the client's
// -ca flag.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/QuizDesk/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server names and IPs")
	flag.Parse()

	if err := generate(*dir, strings.Split(*hosts, ",")); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

// generate writes ca.crt, ca.key, server.crt and server.key into dir. An
// existing CA in dir is reused so clients that already trust it keep
// working.
func generate(dir string, hosts []string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	caCert := filepath.Join(dir, "ca.crt")
	caKey := filepath.Join(dir, "ca.key")

	ca, err := certgen.LoadAuthority(caCert, caKey)
	if errors.Is(err, os.ErrNotExist) {
		ca, err = certgen.NewAuthority("QuizDesk Dev CA", 10*365*24*time.Hour)
		if err != nil {
			return err
		}
		keyPEM, err := ca.KeyPEM()
		if err != nil {
			return err
		}
		if err := writeFiles(caCert, ca.CertPEM(), caKey, keyPEM); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	var names []string
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}
	certPEM, keyPEM, err := ca.IssueServer(names, 365*24*time.Hour)
	if err != nil {
		return err
	}
	return writeFiles(filepath.Join(dir, "server.crt"), certPEM, filepath.Join(dir, "server.key"), keyPEM)
}

// writeFiles writes a certificate and its private key. Keys are private to
// the owner.
func writeFiles(certPath string, certPEM []byte, keyPath string, keyPEM []byte) error {
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return err
	}
	return os.WriteFile(keyPath, keyPEM, 0o600)
}
