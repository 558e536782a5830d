package rbac

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

// LoadRoleTableFile reads a YAML role table of the form
//
//	roles:
//	  STAFF: [view_tickets, create_tickets]
//
// Validation against the permission catalog happens in Catalog.Replace.
func LoadRoleTableFile(path string) (RoleTable, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, oops.In("rbac").Code("ROLE_TABLE_FILE").With("path", path).Wrap(err)
	}
	var doc struct {
		Roles map[string][]string `koanf:"roles"`
	}
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, oops.In("rbac").Code("ROLE_TABLE_FILE").With("path", path).Wrap(err)
	}
	if len(doc.Roles) == 0 {
		return nil, oops.In("rbac").Code("ROLE_TABLE_EMPTY").With("path", path).New("role table file defines no roles")
	}
	return RoleTable(doc.Roles), nil
}
