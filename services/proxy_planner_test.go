package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decoyd/internal/template"
)

func buildProxyTemplate(t *testing.T, proxyXML string) *template.Template {
	t.Helper()
	templatesRoot := t.TempDir()
	dir := filepath.Join(templatesRoot, "plant")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "proxy"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, template.RootFileName),
		[]byte(`<template/>`), 0644))
	if proxyXML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "proxy", "proxy.xml"), []byte(proxyXML), 0644))
	}

	tpl, err := template.Resolve("plant", templatesRoot)
	require.NoError(t, err)
	return tpl
}

func TestPlanProxiesAbsentSubTemplate(t *testing.T) {
	tpl := buildProxyTemplate(t, "")

	specs, err := PlanProxies(tpl)
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestPlanProxiesDisabled(t *testing.T) {
	tpl := buildProxyTemplate(t, `<proxies enabled="False">
  <proxy name="x" host="127.0.0.1" port="5021"><proxy_host>h</proxy_host><proxy_port>502</proxy_port></proxy>
</proxies>`)

	specs, err := PlanProxies(tpl)
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestPlanProxiesTransparentWhenDecoderAbsent(t *testing.T) {
	tpl := buildProxyTemplate(t, `<proxies enabled="True">
  <proxy name="plain" host="127.0.0.1" port="5021">
    <proxy_host>10.0.0.5</proxy_host>
    <proxy_port>502</proxy_port>
  </proxy>
</proxies>`)

	specs, err := PlanProxies(tpl)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Empty(t, specs[0].Decoder, "absent decoder means transparent relay")
}

func TestPlanProxiesResolvesRelativeTLSPaths(t *testing.T) {
	tpl := buildProxyTemplate(t, `<proxies enabled="True">
  <proxy name="tls" host="127.0.0.1" port="5021" keyfile="key.pem" certfile="cert.pem">
    <proxy_host>10.0.0.5</proxy_host>
    <proxy_port>502</proxy_port>
  </proxy>
</proxies>`)

	specs, err := PlanProxies(tpl)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	sslDir := filepath.Join(filepath.Dir(tpl.Root), SSLDirName)
	assert.Equal(t, filepath.Join(sslDir, "key.pem"), specs[0].KeyFile)
	assert.Equal(t, filepath.Join(sslDir, "cert.pem"), specs[0].CertFile)
	assert.True(t, specs[0].TLSConfigured())
}

func TestPlanProxiesAbsoluteTLSPathsUntouched(t *testing.T) {
	tpl := buildProxyTemplate(t, `<proxies enabled="True">
  <proxy name="tls" host="127.0.0.1" port="5021" keyfile="/etc/decoyd/key.pem" certfile="/etc/decoyd/cert.pem">
    <proxy_host>10.0.0.5</proxy_host>
    <proxy_port>502</proxy_port>
  </proxy>
</proxies>`)

	specs, err := PlanProxies(tpl)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "/etc/decoyd/key.pem", specs[0].KeyFile)
}

func TestPlanProxiesPreservesDeclaredOrder(t *testing.T) {
	tpl := buildProxyTemplate(t, `<proxies enabled="True">
  <proxy name="b" host="127.0.0.1" port="1"><proxy_host>h</proxy_host><proxy_port>1</proxy_port></proxy>
  <proxy name="a" host="127.0.0.1" port="2"><proxy_host>h</proxy_host><proxy_port>2</proxy_port></proxy>
</proxies>`)

	specs, err := PlanProxies(tpl)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "b", specs[0].Name)
	assert.Equal(t, "a", specs[1].Name)
}

func TestPlanProxiesMissingBackendIsFatal(t *testing.T) {
	tpl := buildProxyTemplate(t, `<proxies enabled="True">
  <proxy name="broken" host="127.0.0.1" port="5021"><proxy_port>502</proxy_port></proxy>
</proxies>`)

	_, err := PlanProxies(tpl)
	require.Error(t, err)
	assert.ErrorIs(t, err, template.ErrTemplateInvalid)
}
