package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/imrelay/internal/telemetry/logger"
)

const (
	defaultSettle = 250 * time.Millisecond
	expiryWarning = 7 * 24 * time.Hour
)

// KeyPair holds the relay certificate. Handshakes read it through
// GetCertificate, so a reloaded pair applies to the next client. A failed
// reload keeps the previous pair.
type KeyPair struct {
	certFile string
	keyFile  string
	logger   logger.Logger
	settle   time.Duration

	cert atomic.Pointer[tls.Certificate]

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a KeyPair.
type Option func(*KeyPair)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(k *KeyPair) { k.logger = log }
}

// WithSettle sets how long file events must be quiet before a reload.
// Editors and certificate tools often write the key and the cert
// separately.
func WithSettle(d time.Duration) Option {
	return func(k *KeyPair) { k.settle = d }
}

// LoadKeyPair reads certFile and keyFile.
func LoadKeyPair(certFile, keyFile string, opts ...Option) (*KeyPair, error) {
	k := &KeyPair{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger.Default(),
		settle:   defaultSettle,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}

	if err := k.Reload(); err != nil {
		return nil, err
	}
	return k, nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (k *KeyPair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return k.cert.Load(), nil
}

// Reload reads the files again.
func (k *KeyPair) Reload() error {
	cert, err := tls.LoadX509KeyPair(k.certFile, k.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}
	if cert.Leaf == nil {
		if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
			cert.Leaf = leaf
		}
	}
	k.cert.Store(&cert)

	if cert.Leaf != nil {
		log := k.logger.With("cert_file", k.certFile, "not_after", cert.Leaf.NotAfter)
		if time.Until(cert.Leaf.NotAfter) < expiryWarning {
			log.Warn("certificate expires soon")
		}
		log.Info("certificate loaded")
	}
	return nil
}

// Watch reloads the pair whenever either file changes, until Close. The
// parent directories are watched so renames into place are seen.
func (k *KeyPair) Watch() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: %w", err)
	}
	dirs := map[string]bool{filepath.Dir(k.certFile): true, filepath.Dir(k.keyFile): true}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		defer fsw.Close()
		k.watchLoop(fsw)
	}()
	return nil
}

func (k *KeyPair) watchLoop(fsw *fsnotify.Watcher) {
	names := map[string]bool{
		filepath.Clean(k.certFile): true,
		filepath.Clean(k.keyFile):  true,
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !names[filepath.Clean(ev.Name)] || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(k.settle)
			} else {
				timer.Reset(k.settle)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := k.Reload(); err != nil {
				k.logger.Error("certificate reload failed, keeping the previous pair", "error", err)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			k.logger.Warn("certificate watcher error", "error", err)

		case <-k.done:
			return
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (k *KeyPair) Close() {
	k.stopOnce.Do(func() { close(k.done) })
	k.wg.Wait()
}
