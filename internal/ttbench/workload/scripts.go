package workload

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

const bootstrapScript = `
local service_registry = require("cartridge.service-registry")
if service_registry.get("vshard-router") then
    _G.vshard = require("vshard")
end
return _G.vshard ~= nil
`

// onEveryShard runs .Script on the master of every replica set known to the router.
var onEveryShard = template.Must(template.New("onEveryShard").Parse(`
local nb = require("net.box")
local shards, err = vshard.router.routeall()
if err then
    return nil, err
end
for _, shard in pairs(shards) do
    local conn, err = nb.connect(shard.master.uri)
    if err then
        return nil, err
    end
    local ok, err = pcall(conn.eval, conn, [[
{{ .Script }}
    ]])
    conn:close()
    if not ok then
        return nil, err
    end
end
return true
`))

var createSpace = template.Must(template.New("createSpace").Parse(`
box.schema.create_space("{{ .Name }}", {
    if_not_exists = true,
    format = {
{{- range .Fields }}
        { name = "{{ .Name }}", type = "{{ .Type }}" },
{{- end }}
    }
})
{{- if .CreatePrimary }}
box.space.{{ .Name }}:create_index("primary", {
    type = "hash",
    unique = true,
    if_not_exists = true,
    parts = { "{{ .Primary }}" }
})
box.space.{{ .Name }}:create_index("bucket_id", {
    type = "tree",
    unique = false,
    if_not_exists = true,
    parts = { "bucket_id" }
})
{{- end }}
{{- if .CreateSecondary }}
{{- range .Secondary }}
box.space.{{ $.Name }}:create_index("{{ . }}", {
    type = "tree",
    unique = false,
    if_not_exists = true,
    parts = { "{{ . }}" }
})
{{- end }}
{{- end }}
`))

var dropSpace = template.Must(template.New("dropSpace").Parse(`
if box.space.{{ .Name }} then
    box.space.{{ .Name }}:drop()
end
`))

type createSpaceParams struct {
	Space
	CreatePrimary   bool
	CreateSecondary bool
}

func createScript(space Space, primary bool, secondary bool) (string, error) {
	return shardScript(createSpace, createSpaceParams{Space: space, CreatePrimary: primary, CreateSecondary: secondary})
}

func dropScript(space Space) (string, error) {
	return shardScript(dropSpace, space)
}

func shardScript(tmpl *template.Template, data any) (string, error) {
	var inner strings.Builder
	if err := tmpl.Execute(&inner, data); err != nil {
		return "", errors.Wrapf(err, "failed to render %s", tmpl.Name())
	}
	var outer strings.Builder
	if err := onEveryShard.Execute(&outer, struct{ Script string }{Script: inner.String()}); err != nil {
		return "", errors.Wrapf(err, "failed to render %s", onEveryShard.Name())
	}
	return outer.String(), nil
}
