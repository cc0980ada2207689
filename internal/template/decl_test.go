package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadServiceDeclEnabled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "modbus.xml", `<modbus enabled="True" host="127.0.0.1" port="5020"/>`)

	decl, err := LoadServiceDecl(path, "modbus")
	require.NoError(t, err)

	assert.True(t, decl.Enabled)
	assert.Equal(t, "127.0.0.1", decl.Host)
	assert.Equal(t, 5020, decl.Port)
}

func TestLoadServiceDeclDisabledSkipsHostPortChecks(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ftp.xml", `<ftp enabled="False"/>`)

	decl, err := LoadServiceDecl(path, "ftp")
	require.NoError(t, err)
	assert.False(t, decl.Enabled)
}

func TestLoadServiceDeclViolations(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		content string
	}{
		{"wrong root element", "modbus", `<snmp enabled="True" host="h" port="1"/>`},
		{"bad boolean", "modbus", `<modbus enabled="yes" host="h" port="1"/>`},
		{"missing host", "modbus", `<modbus enabled="True" port="1"/>`},
		{"port not integer", "modbus", `<modbus enabled="True" host="h" port="x"/>`},
		{"port out of range", "modbus", `<modbus enabled="True" host="h" port="70000"/>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "svc.xml", tc.content)
			_, err := LoadServiceDecl(path, tc.kind)
			assert.ErrorIs(t, err, ErrTemplateInvalid)
		})
	}
}

func TestLoadProxiesDecl(t *testing.T) {
	path := writeFile(t, t.TempDir(), "proxy.xml", `<proxies enabled="True">
  <proxy name="plc" host="0.0.0.0" port="5021" keyfile="k.pem" certfile="c.pem">
    <proxy_host>10.0.0.5</proxy_host>
    <proxy_port>502</proxy_port>
    <decoder>log</decoder>
  </proxy>
  <proxy name="plain" host="127.0.0.1" port="5022">
    <proxy_host>10.0.0.6</proxy_host>
    <proxy_port>102</proxy_port>
  </proxy>
</proxies>`)

	decl, err := LoadProxiesDecl(path)
	require.NoError(t, err)
	require.True(t, decl.Enabled)
	require.Len(t, decl.Proxies, 2)

	first := decl.Proxies[0]
	assert.Equal(t, "plc", first.Name)
	assert.Equal(t, 5021, first.Port)
	assert.Equal(t, "10.0.0.5", first.BackendHost)
	assert.Equal(t, 502, first.BackendPort)
	assert.Equal(t, "log", first.Decoder)
	assert.Equal(t, "k.pem", first.KeyFile)

	// Declared order is preserved, absent decoder stays empty.
	second := decl.Proxies[1]
	assert.Equal(t, "plain", second.Name)
	assert.Empty(t, second.Decoder)
	assert.Empty(t, second.KeyFile)
}

func TestLoadProxiesDeclMissingBackendIsFatal(t *testing.T) {
	path := writeFile(t, t.TempDir(), "proxy.xml", `<proxies enabled="True">
  <proxy name="plc" host="127.0.0.1" port="5021"><proxy_port>502</proxy_port></proxy>
</proxies>`)

	_, err := LoadProxiesDecl(path)
	assert.ErrorIs(t, err, ErrTemplateInvalid)
}

func TestLoadProxiesDeclLoneKeyfileIsFatal(t *testing.T) {
	path := writeFile(t, t.TempDir(), "proxy.xml", `<proxies enabled="True">
  <proxy name="plc" host="127.0.0.1" port="5021" keyfile="k.pem">
    <proxy_host>10.0.0.5</proxy_host>
    <proxy_port>502</proxy_port>
  </proxy>
</proxies>`)

	_, err := LoadProxiesDecl(path)
	assert.ErrorIs(t, err, ErrTemplateInvalid)
}

func TestParseBoolLiteral(t *testing.T) {
	for _, s := range []string{"True", "true", "TRUE"} {
		v, err := ParseBoolLiteral(s)
		require.NoError(t, err)
		assert.True(t, v)
	}
	v, err := ParseBoolLiteral("False")
	require.NoError(t, err)
	assert.False(t, v)

	_, err = ParseBoolLiteral("1")
	assert.Error(t, err)
	_, err = ParseBoolLiteral("")
	assert.Error(t, err)
}
