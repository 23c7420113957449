package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(string, interface{}) error { return nil }

func TestFindPicksMostSpecificCandidate(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(Candidate{Name: "generic", Action: "configureCpus", Fn: noop})
	r.Register(Candidate{Name: "xenUbuntu", Action: "configureCpus", Hypervisor: "xen", Template: []string{"ubuntu"}, Fn: noop})
	r.Register(Candidate{Name: "xenOnly", Action: "configureCpus", Hypervisor: "xen", Fn: noop})

	fn, err := r.Find("host:h1", "configureCpus", "xen", []string{"ubuntu", "router"}, "")
	require.NoError(t, err)
	assert.NotNil(t, fn)
}

func TestFindHonorsPerObjectOverride(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(Candidate{Name: "generic", Action: "configureCpus", Fn: noop})
	r.Register(Candidate{Name: "special", Action: "configureCpus", Fn: noop})
	r.SetOverrides(map[string]map[string]string{
		"host:h1": {"configureCpus": "special"},
	})

	fn, err := r.Find("host:h1", "configureCpus", "", nil, "")
	require.NoError(t, err)
	assert.NotNil(t, fn)
}

func TestFindReturnsErrorWhenNoneMatch(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(Candidate{Name: "kvmOnly", Action: "configureCpus", Hypervisor: "kvm", Fn: noop})

	_, err := r.Find("host:h1", "configureCpus", "xen", nil, "")
	assert.Error(t, err)
}

func TestFindBreaksTiesByRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	var calls []string
	r.Register(Candidate{Name: "first", Action: "boot", Fn: func(string, interface{}) error { calls = append(calls, "first"); return nil }})
	r.Register(Candidate{Name: "second", Action: "boot", Fn: func(string, interface{}) error { calls = append(calls, "second"); return nil }})

	fn, err := r.Find("host:h1", "boot", "", nil, "")
	require.NoError(t, err)
	require.NoError(t, fn("env", nil))
	assert.Equal(t, []string{"first"}, calls)
}
