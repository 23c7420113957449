// Package stub provides an illustrative nmap-backed service collector,
// grounded on scanner/modules/NmapService.py. The SSH/local-exec branching
// that module uses to fetch nmap's XML output is represented here by an
// injected command runner, so the collector itself stays a pure XML-to-graph
// transform that can register into a dispatcher.CollectorRegistry.
package stub

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/tumi8/insalata-go/internal/dispatcher"
	"github.com/tumi8/insalata-go/internal/graph/core"
)

// CollectorType is the name this collector registers under in a
// dispatcher.CollectorRegistry and in an environment's module config.
const CollectorType = "nmapService"

// Config mirrors the module's connectionInfo keys.
type Config struct {
	Name    string
	Timeout time.Duration
	Options string
}

// Collector runs an nmap service scan against a target network and merges
// discovered addresses/services into a graph.
type Collector struct {
	cfg Config
	log *slog.Logger
	run func(ctx context.Context, args ...string) ([]byte, error)
}

// NewCollector builds a Collector from module config. A nil runner defaults
// to actually invoking the nmap binary on PATH.
func NewCollector(cfg Config, log *slog.Logger, runner func(ctx context.Context, args ...string) ([]byte, error)) *Collector {
	if log == nil {
		log = slog.Default()
	}
	if runner == nil {
		runner = execNmap
	}
	return &Collector{cfg: cfg, log: log, run: runner}
}

// RegisterFactory adds this collector type to reg, so an environment's
// config document can select "nmapService" by name.
func RegisterFactory(reg *dispatcher.CollectorRegistry, log *slog.Logger) {
	reg.Register(CollectorType, func(moduleConfig map[string]interface{}) (interface{}, error) {
		cfg := Config{Name: CollectorType}
		if v, ok := moduleConfig["name"].(string); ok {
			cfg.Name = v
		}
		if v, ok := moduleConfig["options"].(string); ok {
			cfg.Options = v
		}
		if v, ok := moduleConfig["timeoutSeconds"].(float64); ok {
			cfg.Timeout = time.Duration(v) * time.Second
		}
		return NewCollector(cfg, log, nil), nil
	})
}

func execNmap(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "nmap", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("stub: nmap exec: %w", err)
	}
	return out.Bytes(), nil
}

type nmapRunXML struct {
	Hosts []nmapHostXML `xml:"host"`
}

type nmapHostXML struct {
	Addresses []nmapAddressXML `xml:"address"`
	Ports     struct {
		Ports []nmapPortXML `xml:"port"`
	} `xml:"ports"`
}

type nmapAddressXML struct {
	Addr string `xml:"addr,attr"`
	Type string `xml:"addrtype,attr"`
}

type nmapPortXML struct {
	Protocol string `xml:"protocol,attr"`
	PortID   string `xml:"portid,attr"`
	Service  *struct {
		Name    string `xml:"name,attr"`
		Product string `xml:"product,attr"`
		Version string `xml:"version,attr"`
	} `xml:"service"`
}

// Scan runs nmap against target (a CIDR or host) and merges discovered
// addresses/services into g, mirroring the module's per-address,
// per-port service resolution (domain -> DNS service, dhcps -> DHCP
// service, anything else -> a generic service).
func (c *Collector) Scan(ctx context.Context, g *core.Graph, target string) error {
	args := []string{"-oX", "-", "-sV"}
	if c.cfg.Options != "" {
		args = append(args, c.cfg.Options)
	}
	args = append(args, target)

	raw, err := c.run(ctx, args...)
	if err != nil {
		return fmt.Errorf("stub: nmap scan %q: %w", target, err)
	}

	var run nmapRunXML
	if err := xml.Unmarshal(raw, &run); err != nil {
		return fmt.Errorf("stub: parse nmap output: %w", err)
	}

	for _, h := range run.Hosts {
		c.mergeHost(g, h)
	}
	return nil
}

func (c *Collector) mergeHost(g *core.Graph, h nmapHostXML) {
	for _, a := range h.Addresses {
		if a.Type == "mac" {
			continue
		}
		c.log.Debug("stub: found entry for address in nmap scan", "address", a.Addr)
		addr := g.GetOrCreateLayer3Address(a.Addr, nil, nil, "", "", true, c.cfg.Name, c.cfg.Timeout)

		for _, p := range h.Ports.Ports {
			if p.Service == nil || p.Service.Name == "" || p.Service.Name == "unknown" {
				continue
			}
			port, err := strconv.Atoi(p.PortID)
			if err != nil {
				continue
			}

			switch p.Service.Name {
			case "domain":
				g.GetOrCreateDnsService(addr, "", c.cfg.Name, c.cfg.Timeout)
			case "dhcps":
				g.GetOrCreateDhcpService(addr, 0, "", "", "", c.cfg.Name, c.cfg.Timeout)
			default:
				svc := g.GetOrCreateService(addr, port, p.Protocol, p.Service.Name, p.Service.Product, p.Service.Version, c.cfg.Name, c.cfg.Timeout)
				c.log.Debug("stub: add service to address", "service", svc.Kind(), "address", a.Addr)
			}
		}
	}
}
