package metrics

import (
	"fmt"
	"os/exec"
	"os/user"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
	"github.com/prometheus/client_golang/prometheus/push"
)

type pusher struct {
	url     string
	timeout time.Duration
	labels  map[string]string
	updated bool
	mutex   sync.Mutex
}

// p is the singleton pusher, if one has been configured.
var p *pusher

// InitPush configures metrics to be pushed to the given pushgateway when Stop is called.
// Each custom label is a command whose output becomes the label's value.
func InitPush(url string, timeout time.Duration, customLabels map[string]string) error {
	p = newPusher(url, timeout)
	for k, cmd := range customLabels {
		v, err := deriveLabelValue(cmd)
		if err != nil {
			return err
		}
		p.labels[k] = v
	}
	return nil
}

func newPusher(url string, timeout time.Duration) *pusher {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	} else {
		log.Warning("Can't determine current user name for metrics")
	}
	return &pusher{
		url:     url,
		timeout: timeout,
		labels: map[string]string{
			"user": username,
			"arch": runtime.GOOS + "_" + runtime.GOARCH,
		},
	}
}

func markUpdated() {
	if p != nil {
		p.mutex.Lock()
		p.updated = true
		p.mutex.Unlock()
	}
}

// Stop sends any outstanding metrics before returning.
func Stop() {
	if p != nil {
		if err := p.push(); err != nil {
			log.Warning("Could not push metrics to the repository: %s", err)
		}
	}
}

// push sends the metrics to the gateway, if there have been any since the last push.
func (p *pusher) push() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if !p.updated {
		return nil
	}
	start := time.Now()
	gw := push.New(p.url, "rulegraph").Gatherer(registry)
	for k, v := range p.labels {
		gw = gw.Grouping(k, v)
	}
	if err := deadline(gw.Add, p.timeout); err != nil {
		return err
	}
	p.updated = false
	log.Debug("Pushed metrics in %0.3fs", time.Since(start).Seconds())
	return nil
}

// deadline applies a deadline to an arbitrary function and returns when either the function
// completes or the deadline expires.
func deadline(f func() error, timeout time.Duration) error {
	c := make(chan error, 1)
	go func() {
		c <- f()
	}()
	select {
	case err := <-c:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("metrics push timed out after %s", timeout)
	}
}

// deriveLabelValue runs a command and returns its output, which must be a single line.
func deriveLabelValue(cmd string) (string, error) {
	parts, err := shlex.Split(cmd)
	if err != nil {
		return "", fmt.Errorf("invalid custom metric command [%s]: %w", cmd, err)
	} else if len(parts) == 0 {
		return "", fmt.Errorf("empty custom metric command")
	}
	log.Debug("Running custom label command: %s", cmd)
	b, err := exec.Command(parts[0], parts[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("custom metric command [%s] failed: %w", cmd, err)
	}
	value := strings.TrimSpace(string(b))
	if strings.Contains(value, "\n") {
		return "", fmt.Errorf("return value of custom metric command [%s] contains newlines: %s", cmd, value)
	}
	return value, nil
}
