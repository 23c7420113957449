package stub

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/dispatcher"
	"github.com/tumi8/insalata-go/internal/graph/core"
)

func TestRegisterWiresCreateHostForXen(t *testing.T) {
	reg := dispatcher.NewRegistry(nil)
	Register(reg, slog.Default())

	g := core.New("goal", nil)
	loc := g.GetOrCreateLocation("loc1", "xen", "plain", "probe", 0)
	tmpl := g.GetOrCreateTemplate(loc, "plain", []string{"server"}, "probe", 0)
	host := g.GetOrCreateHost("h1", loc, tmpl, "probe", 0)

	fn, err := reg.Find(host.GlobalID(), "createHost", "xen", tmpl.Metadata(), "")
	require.NoError(t, err)
	assert.NoError(t, fn("goal", host))
}

func TestCreateHostRejectsWrongObjectType(t *testing.T) {
	fn := xenCreateHost(slog.Default())
	err := fn("goal", "not-a-host")
	assert.Error(t, err)
}
