package sync

// Policy holds the table/policy matrix. The zero value is the base
// matrix from spec.md §4.2; ExtraSalesLikeTables lets an operator's
// policy overlay (internal/config.PolicyOverlay) extend it with
// additional tables that follow the "sales" one-way shape, without
// ever being able to add "users".
type Policy struct {
	ExtraSalesLikeTables map[Table]bool
}

// DefaultPolicy is the base matrix with no overlay applied.
var DefaultPolicy = Policy{}

// Gate decides, purely as a function of (table, source region, op, local
// region), whether a Change is eligible to be applied locally. It
// performs no I/O.
//
// Policy matrix (local region = L, peer region = P; source is the
// envelope's sync origin):
//
//	users    any  any     REJECT privacy_users_never_sync
//	products P    create  REJECT directional_products_create_local_only
//	products P    update  ACCEPT
//	products P    delete  ACCEPT
//	sales    L    any     REJECT directional_sales_one_way
//	sales    P    any     ACCEPT
//	*        L    any     REJECT not_for_local
func Gate(local Region, c *Change) Decision {
	return DefaultPolicy.Gate(local, c)
}

// Gate applies p's matrix (base rules plus any overlay-extended
// sales-like tables) to c.
func (p Policy) Gate(local Region, c *Change) Decision {
	if c.Table == TableUsers {
		return Decision{Accept: false, Reason: "privacy_users_never_sync"}
	}

	salesLike := c.Table == TableSales || p.ExtraSalesLikeTables[c.Table]

	if c.SyncOrigin == local {
		// Echoes of our own writes returning through CDC.
		if salesLike {
			return Decision{Accept: false, Reason: "directional_sales_one_way"}
		}
		return Decision{Accept: false, Reason: "not_for_local"}
	}

	switch {
	case c.Table == TableProducts:
		if c.Op == OpCreate {
			return Decision{Accept: false, Reason: "directional_products_create_local_only"}
		}
		return Decision{Accept: true}
	case salesLike:
		return Decision{Accept: true}
	default:
		return Decision{Accept: false, Reason: "unknown_table"}
	}
}
