package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, root, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RootFileName), []byte(content), 0644))
	return dir
}

const fullTemplate = `<template>
  <unit>S7-200</unit>
  <vendor>Siemens</vendor>
  <description>PLC decoy</description>
  <protocols>modbus, s7comm</protocols>
  <creator>plant team</creator>
  <databus>
    <key name="unit">S7-200</key>
    <key name="ftp_banner">ready</key>
  </databus>
</template>`

func TestResolveByName(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "plant", fullTemplate)

	tpl, err := Resolve("plant", root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "plant"), tpl.Root)
	assert.Equal(t, "S7-200", tpl.Meta.Unit)
	assert.Equal(t, "Siemens", tpl.Meta.Vendor)
	assert.Equal(t, "S7-200", tpl.Databus["unit"])
	assert.Equal(t, "ready", tpl.Databus["ftp_banner"])
}

func TestResolveByExplicitPath(t *testing.T) {
	root := t.TempDir()
	dir := writeTemplate(t, root, "plant", fullTemplate)

	tpl, err := Resolve(dir, "/nonexistent/templates")
	require.NoError(t, err)
	assert.Equal(t, dir, tpl.Root)
}

func TestResolveNotFound(t *testing.T) {
	root := t.TempDir()

	_, err := Resolve("missing", root)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestResolveInvalidXML(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "broken", `<template><unit>oops`)

	_, err := Resolve("broken", root)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateInvalid)
}

func TestResolveWrongRootElement(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "wrong", `<config><unit>x</unit></config>`)

	_, err := Resolve("wrong", root)
	assert.ErrorIs(t, err, ErrTemplateInvalid)
}

func TestResolveDuplicateDatabusKey(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "dup", `<template><databus><key name="a">1</key><key name="a">2</key></databus></template>`)

	_, err := Resolve("dup", root)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateInvalid)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 1)
}

func TestListAllDefaultsMissingFields(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "bare", `<template><unit>bare unit</unit></template>`)
	writeTemplate(t, root, "full", fullTemplate)
	// Directory without a root template file is not a candidate.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notatemplate"), 0755))

	metas, err := ListAll(root)
	require.NoError(t, err)
	require.Len(t, metas, 2)

	assert.Equal(t, "bare", metas[0].Name)
	assert.Equal(t, "bare unit", metas[0].Unit)
	assert.Equal(t, NotAvailable, metas[0].Vendor)
	assert.Equal(t, NotAvailable, metas[0].Creator)

	assert.Equal(t, "full", metas[1].Name)
	assert.Equal(t, "plant team", metas[1].Creator)
}
