package goalxml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/graph/core"
)

const sampleDoc = `<config name="lab">
  <locations>
    <location id="loc1" hypervisor="xen" defaultTemplate="plain"/>
  </locations>
  <layer2networks>
    <layer2network id="net1" location="loc1"/>
  </layer2networks>
  <layer3networks>
    <layer3network id="l3net1" address="10.0.0.0" netmask="255.255.255.0"/>
  </layer3networks>
  <hosts>
    <host id="h1" location="loc1" template="edge" cpus="2" memoryMin="512" memoryMax="1024" powerState="running">
      <interfaces>
        <interface mac="aa:bb:cc:dd:ee:ff" network="net1" rate="1000" mtu="1500">
          <layer3address address="10.0.0.5" network="l3net1" gateway="10.0.0.1" static="True">
            <services>
              <service port="22" protocol="tcp" type="ssh" product="openssh" version="9.0"/>
              <dns domain="example.test"/>
            </services>
          </layer3address>
        </interface>
      </interfaces>
      <disks>
        <disk id="root" size="20480"/>
      </disks>
    </host>
  </hosts>
</config>`

func TestCollectBuildsGraphFromDocument(t *testing.T) {
	g := core.New("goal", nil)
	err := Collect(g, strings.NewReader(sampleDoc), nil)
	require.NoError(t, err)

	require.Len(t, g.Hosts(), 1)
	host := g.Hosts()[0]
	assert.Equal(t, "h1", host.ID())

	require.Len(t, host.Interfaces(), 1)
	iface := host.Interfaces()[0]
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", iface.MAC())

	require.Len(t, iface.Addresses(), 1)
	addr := iface.Addresses()[0]
	assert.Equal(t, "10.0.0.1", addr.Gateway())
	assert.True(t, addr.Static())

	require.Len(t, g.Layer2Networks(), 1)
	require.Len(t, g.Layer3Networks(), 1)
}

func TestCollectSkipsInterfaceWithUnknownNetwork(t *testing.T) {
	doc := `<config name="lab">
  <locations><location id="loc1" hypervisor="xen" defaultTemplate="plain"/></locations>
  <hosts>
    <host id="h1" location="loc1" template="edge">
      <interfaces>
        <interface mac="aa:bb:cc:dd:ee:ff" network="missing-net"/>
      </interfaces>
    </host>
  </hosts>
</config>`

	g := core.New("goal", nil)
	err := Collect(g, strings.NewReader(doc), nil)
	require.NoError(t, err)

	require.Len(t, g.Hosts(), 1)
	assert.Empty(t, g.Hosts()[0].Interfaces())
}
