// Package executor walks an ordered planner.Step list and, for each step,
// resolves the high-level action to a concrete builder callable through a
// dispatcher.Registry and calls it against the live graph.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tumi8/insalata-go/internal/cache"
	"github.com/tumi8/insalata-go/internal/dispatcher"
	"github.com/tumi8/insalata-go/internal/graph/core"
	"github.com/tumi8/insalata-go/internal/metrics"
	"github.com/tumi8/insalata-go/internal/planner"
)

// resolveCacheSize bounds how many resolved plan objects an Executor keeps
// memoized across one Run call. A deployment plan rarely touches more than
// a few hundred distinct objects, so this comfortably covers a single run
// without growing unbounded across repeated Runs on the same Executor.
const resolveCacheSize = 4096

// Executor runs a plan against a goal graph, looking up concrete builder
// callables through reg and resolving plan object IDs against both the
// goal and the current graph (a removed object only exists in current).
type Executor struct {
	goal    *core.Graph
	current *core.Graph
	reg     *dispatcher.Registry
	log     *slog.Logger

	// State reports step-by-step progress, mirroring the source's
	// EnvironmentHandler.taskState string.
	State *StateReporter

	// resolved memoizes resolve() lookups: Graph.FindByGlobalID walks the
	// whole graph, and a plan revisits the same objects across many steps.
	resolved *cache.NodeCache[core.GraphNode]
}

// StateReporter is a minimal progress sink; callers plug the scheduler's
// StateToken in here via SetState, or leave it nil to discard progress.
type StateReporter struct {
	SetState func(format string, args ...interface{})
}

func (r *StateReporter) report(format string, args ...interface{}) {
	if r == nil || r.SetState == nil {
		return
	}
	r.SetState(format, args...)
}

// New creates an Executor. goal is the configuration being deployed,
// current is the configuration already live.
func New(goal, current *core.Graph, reg *dispatcher.Registry, log *slog.Logger, state *StateReporter) *Executor {
	if log == nil {
		log = slog.Default()
	}
	resolved, err := cache.New[core.GraphNode](resolveCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which New guards
		// against internally; cache.New with resolveCacheSize cannot fail.
		resolved = nil
	}
	return &Executor{goal: goal, current: current, reg: reg, log: log, State: state, resolved: resolved}
}

// resolve finds the live entity a plan object name refers to, checking the
// goal graph first (new/changed/unchanged entities live there) and falling
// back to the current graph (removed entities only exist there). Lookups
// are memoized for the lifetime of this Executor.
func (e *Executor) resolve(id string) core.GraphNode {
	if e.resolved != nil {
		if n, ok := e.resolved.Get(id); ok {
			return n
		}
	}

	n := e.goal.FindByGlobalID(id)
	if n == nil {
		n = e.current.FindByGlobalID(id)
	}
	if n != nil && e.resolved != nil {
		e.resolved.Set(id, n)
	}
	return n
}

// Run executes every step in order, logging and continuing past a failed
// step the way runSetup does: one bad step must not abort the whole
// deployment.
func (e *Executor) Run(ctx context.Context, steps []planner.Step) {
	for i, step := range steps {
		select {
		case <-ctx.Done():
			e.log.Warn("plan execution cancelled", "completed", i, "total", len(steps))
			return
		default:
		}

		objects := make([]core.GraphNode, 0, len(step.Objects))
		for _, id := range step.Objects {
			n := e.resolve(id)
			if n == nil {
				e.log.Error("plan object not found", "step", step.Action, "object", id)
				continue
			}
			objects = append(objects, n)
		}

		label := ""
		if len(objects) > 0 {
			label = objects[0].GlobalID()
		}
		e.State.report("Call step %d/%d: '%s' on object '%s'", i+1, len(steps), step.Action, label)
		e.log.Info("executing plan step", "step", i+1, "total", len(steps), "action", step.Action, "object", label)

		handler, ok := handlers[step.Action]
		if !ok {
			e.log.Error("no handler for plan action", "action", step.Action)
			continue
		}
		if err := handler(e, objects); err != nil {
			e.log.Error("plan step failed", "action", step.Action, "object", label, "error", err)
			metrics.BuilderFailuresTotal.WithLabelValues(e.goal.Name(), step.Action).Inc()
		}
	}
}

// handlerFunc is one action's implementation: given the resolved objects in
// plan order, find the right builder callable and invoke it.
type handlerFunc func(e *Executor, objects []core.GraphNode) error

var handlers map[string]handlerFunc

func init() {
	handlers = map[string]handlerFunc{
		"createnetwork":        (*Executor).createNetwork,
		"createhost":           (*Executor).createHost,
		"createinterface":      (*Executor).createInterface,
		"boot":                 (*Executor).boot,
		"bootandnamed":         (*Executor).bootAndNamed,
		"reboot":               (*Executor).reboot,
		"rebootandnamed":       (*Executor).rebootAndNamed,
		"bootunnamed":          (*Executor).bootUnnamed,
		"shutdown":             (*Executor).shutdown,
		"name":                 (*Executor).name,
		"configureservice":     (*Executor).configureService,
		"configuredns":         (*Executor).configureDns,
		"configuredhcp":        (*Executor).configureDhcp,
		"configurerouting":     (*Executor).configureRouting,
		"configurefirewall":    (*Executor).configureFirewall,
		"configurecpus":        (*Executor).configureCpus,
		"configurememory":      (*Executor).configureMemory,
		"configureinterface":   (*Executor).configureInterface,
		"unconfigureinterface": (*Executor).unconfigureInterface,
		"configurenetwork":     (*Executor).configureNetwork,
		"configuremtu":         (*Executor).configureMtu,
		"configurerate":        (*Executor).configureRate,
		"addconfignamenetwork": (*Executor).addConfigNameNetwork,
		"addconfignamehost":    (*Executor).addConfigNameHost,
		"addconfignamedisk":    (*Executor).addConfigNameDisk,
		"adddisk":              (*Executor).addDisk,
		"removedisk":           (*Executor).removeDisk,
		"removenetwork":        (*Executor).removeNetwork,
		"removehost":           (*Executor).removeHost,
		"removeinterface":      (*Executor).removeInterface,
		"deletehost":           func(*Executor, []core.GraphNode) error { return nil },
	}
}

func arg[T core.GraphNode](objects []core.GraphNode, i int) (T, error) {
	var zero T
	if i >= len(objects) {
		return zero, fmt.Errorf("executor: action expects at least %d object(s), got %d", i+1, len(objects))
	}
	v, ok := objects[i].(T)
	if !ok {
		return zero, fmt.Errorf("executor: object %q is not a %T", objects[i].GlobalID(), zero)
	}
	return v, nil
}

func hostTags(h *core.Host) []string {
	if t := h.Template(); t != nil {
		return t.Metadata()
	}
	return nil
}

func hostHypervisor(h *core.Host) string {
	if l := h.Location(); l != nil {
		return l.Hypervisor()
	}
	return ""
}

func (e *Executor) dispatch(objectID, action, hypervisor string, tags []string, service string) (dispatcher.BuildFunc, error) {
	return e.reg.Find(objectID, action, hypervisor, tags, service)
}

func (e *Executor) createNetwork(objects []core.GraphNode) error {
	n, err := arg[*core.Layer2Network](objects, 0)
	if err != nil {
		return err
	}
	hv := ""
	if l := n.Location(); l != nil {
		hv = l.Hypervisor()
	}
	f, err := e.dispatch(n.GlobalID(), "createNetwork", hv, nil, "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), n)
}

func (e *Executor) createHost(objects []core.GraphNode) error {
	h, err := arg[*core.Host](objects, 0)
	if err != nil {
		return err
	}
	f, err := e.dispatch(h.GlobalID(), "createHost", hostHypervisor(h), hostTags(h), "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), h)
}

func (e *Executor) createInterface(objects []core.GraphNode) error {
	i, err := arg[*core.Interface](objects, 0)
	if err != nil {
		return err
	}
	host := i.Host()
	f, err := e.dispatch(i.GlobalID(), "createInterface", hostHypervisor(host), hostTags(host), "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), i)
}

func (e *Executor) hostAction(action string) handlerFunc {
	return func(e *Executor, objects []core.GraphNode) error {
		h, err := arg[*core.Host](objects, 0)
		if err != nil {
			return err
		}
		f, err := e.dispatch(h.GlobalID(), action, hostHypervisor(h), hostTags(h), "")
		if err != nil {
			return err
		}
		return f(e.goal.Name(), h)
	}
}

func (e *Executor) boot(objects []core.GraphNode) error    { return e.hostAction("boot")(e, objects) }
func (e *Executor) reboot(objects []core.GraphNode) error  { return e.hostAction("reboot")(e, objects) }
func (e *Executor) shutdown(objects []core.GraphNode) error {
	return e.hostAction("shutdown")(e, objects)
}
func (e *Executor) name(objects []core.GraphNode) error { return e.hostAction("name")(e, objects) }

func (e *Executor) bootAndNamed(objects []core.GraphNode) error {
	h, err := arg[*core.Host](objects, 0)
	if err != nil {
		return err
	}
	h.SetNameApplied(true)
	return e.boot(objects)
}

func (e *Executor) rebootAndNamed(objects []core.GraphNode) error {
	h, err := arg[*core.Host](objects, 0)
	if err != nil {
		return err
	}
	h.SetNameApplied(true)
	return e.reboot(objects)
}

func (e *Executor) bootUnnamed(objects []core.GraphNode) error {
	h, err := arg[*core.Host](objects, 0)
	if err != nil {
		return err
	}
	h.SetNameApplied(false)
	return e.boot(objects)
}

func serviceProductOrKind(s *core.Service) string {
	if p := s.Product(); p != "" {
		return p
	}
	return s.Kind()
}

func (e *Executor) configureService(objects []core.GraphNode) error {
	s, err := arg[*core.Service](objects, 0)
	if err != nil {
		return err
	}
	host := serviceHost(s.Address())
	f, err := e.dispatch(s.GlobalID(), "configureService", "", hostTags(host), serviceProductOrKind(s))
	if err != nil {
		return err
	}
	return f(e.goal.Name(), s)
}

func (e *Executor) configureDns(objects []core.GraphNode) error {
	d, err := arg[*core.DnsService](objects, 0)
	if err != nil {
		return err
	}
	host := serviceHost(d.Address())
	f, err := e.dispatch(d.GlobalID(), "configureDns", "", hostTags(host), serviceProductOrKind(d.Service))
	if err != nil {
		return err
	}
	return f(e.goal.Name(), d)
}

func (e *Executor) configureDhcp(objects []core.GraphNode) error {
	d, err := arg[*core.DhcpService](objects, 0)
	if err != nil {
		return err
	}
	host := serviceHost(d.Address())
	f, err := e.dispatch(d.GlobalID(), "configureDhcp", "", hostTags(host), serviceProductOrKind(d.Service))
	if err != nil {
		return err
	}
	return f(e.goal.Name(), d)
}

func serviceHost(a *core.Layer3Address) *core.Host {
	if a == nil {
		return nil
	}
	iface := a.Interface()
	if iface == nil {
		return nil
	}
	return iface.Host()
}

func (e *Executor) configureRouting(objects []core.GraphNode) error {
	h, err := arg[*core.Host](objects, 0)
	if err != nil {
		return err
	}
	f, err := e.dispatch(h.GlobalID(), "configureRouting", "", hostTags(h), "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), h)
}

func (e *Executor) configureFirewall(objects []core.GraphNode) error {
	h, err := arg[*core.Host](objects, 0)
	if err != nil {
		return err
	}
	f, err := e.dispatch(h.GlobalID(), "configureFirewall", "", hostTags(h), "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), h)
}

func (e *Executor) configureCpus(objects []core.GraphNode) error {
	return e.hostAction("configureCpus")(e, objects)
}

func (e *Executor) configureMemory(objects []core.GraphNode) error {
	return e.hostAction("configureMemory")(e, objects)
}

func (e *Executor) interfaceAction(action string) handlerFunc {
	return func(e *Executor, objects []core.GraphNode) error {
		i, err := arg[*core.Interface](objects, 0)
		if err != nil {
			return err
		}
		host := i.Host()
		f, err := e.dispatch(i.GlobalID(), action, hostHypervisor(host), hostTags(host), "")
		if err != nil {
			return err
		}
		return f(e.goal.Name(), i)
	}
}

func (e *Executor) configureInterface(objects []core.GraphNode) error {
	return e.interfaceAction("configureInterface")(e, objects)
}
func (e *Executor) unconfigureInterface(objects []core.GraphNode) error {
	return e.interfaceAction("unconfigureInterface")(e, objects)
}
func (e *Executor) configureNetwork(objects []core.GraphNode) error {
	return e.interfaceAction("configureNetwork")(e, objects)
}
func (e *Executor) configureMtu(objects []core.GraphNode) error {
	return e.interfaceAction("configureMtu")(e, objects)
}
func (e *Executor) configureRate(objects []core.GraphNode) error {
	return e.interfaceAction("configureRate")(e, objects)
}

func (e *Executor) addConfigNameNetwork(objects []core.GraphNode) error {
	n, err := arg[*core.Layer2Network](objects, 0)
	if err != nil {
		return err
	}
	hv := ""
	if l := n.Location(); l != nil {
		hv = l.Hypervisor()
	}
	f, err := e.dispatch(n.GlobalID(), "addConfigNameNetwork", hv, nil, "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), n)
}

func (e *Executor) addConfigNameHost(objects []core.GraphNode) error {
	h, err := arg[*core.Host](objects, 0)
	if err != nil {
		return err
	}
	f, err := e.dispatch(h.GlobalID(), "addConfigNameHost", hostHypervisor(h), nil, "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), h)
}

func (e *Executor) addConfigNameDisk(objects []core.GraphNode) error {
	d, err := arg[*core.Disk](objects, 0)
	if err != nil {
		return err
	}
	f, err := e.dispatch(d.GlobalID(), "addConfigNameDisk", hostHypervisor(d.Host()), nil, "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), d)
}

func (e *Executor) addDisk(objects []core.GraphNode) error {
	d, err := arg[*core.Disk](objects, 0)
	if err != nil {
		return err
	}
	f, err := e.dispatch(d.GlobalID(), "addDisk", hostHypervisor(d.Host()), nil, "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), d)
}

// removeDisk dispatches the disk's removal to its builder directly.
// removeNetwork and removeHost mirror the source's two-phase teardown: drop
// this deployment's config name first, and only destroy the underlying
// resource once no configuration references it any more.
func (e *Executor) removeDisk(objects []core.GraphNode) error {
	d, err := arg[*core.Disk](objects, 0)
	if err != nil {
		return err
	}
	f, err := e.dispatch(d.GlobalID(), "removeDisk", hostHypervisor(d.Host()), nil, "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), d)
}

func (e *Executor) removeNetwork(objects []core.GraphNode) error {
	n, err := arg[*core.Layer2Network](objects, 0)
	if err != nil {
		return err
	}
	remaining := removeConfigName(n.ConfigNames(), e.goal.Name())
	n.SetConfigNames(remaining, "executor", 0)
	if len(remaining) > 0 {
		return nil
	}
	hv := ""
	if l := n.Location(); l != nil {
		hv = l.Hypervisor()
	}
	f, err := e.dispatch(n.GlobalID(), "removeNetwork", hv, nil, "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), n)
}

func (e *Executor) removeHost(objects []core.GraphNode) error {
	h, err := arg[*core.Host](objects, 0)
	if err != nil {
		return err
	}
	remaining := removeConfigName(h.ConfigNames(), e.goal.Name())
	h.SetConfigNames(remaining, "executor", 0)
	if len(remaining) > 0 {
		return nil
	}
	f, err := e.dispatch(h.GlobalID(), "removeHost", hostHypervisor(h), nil, "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), h)
}

func (e *Executor) removeInterface(objects []core.GraphNode) error {
	i, err := arg[*core.Interface](objects, 0)
	if err != nil {
		return err
	}
	host := i.Host()
	f, err := e.dispatch(i.GlobalID(), "removeInterface", hostHypervisor(host), nil, "")
	if err != nil {
		return err
	}
	return f(e.goal.Name(), i)
}

func removeConfigName(names []string, remove string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != remove {
			out = append(out, n)
		}
	}
	return out
}
