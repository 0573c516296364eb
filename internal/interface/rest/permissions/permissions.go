package permissions

import (
	"net/http"

	"gopkg.in/macaroon-bakery.v2/bakery"
)

const (
	EntityAudit  = "audit"
	EntityFaucet = "faucet"
)

func ReadOnlyPermissions() []bakery.Op {
	return []bakery.Op{
		{
			Entity: EntityAudit,
			Action: "read",
		},
	}
}

func AdminPermissions() []bakery.Op {
	return []bakery.Op{
		{
			Entity: EntityAudit,
			Action: "read",
		},
		{
			Entity: EntityFaucet,
			Action: "write",
		},
	}
}

// AllPermissionsByRoute returns the operations a macaroon must grant to call
// each protected route. Routes missing from the map are public.
func AllPermissionsByRoute() map[string][]bakery.Op {
	return map[string][]bakery.Op{
		Route(http.MethodGet, "/v1/admin/audit"): {{
			Entity: EntityAudit,
			Action: "read",
		}},
		Route(http.MethodPost, "/v1/faucet"): {{
			Entity: EntityFaucet,
			Action: "write",
		}},
	}
}

func Route(method, pattern string) string {
	return method + " " + pattern
}
