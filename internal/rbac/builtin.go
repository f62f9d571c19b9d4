package rbac

import "sync"

// RoleSuperAdmin is the sentinel role slug that bypasses every
// authorization check.
const RoleSuperAdmin = "super_admin"

var (
	builtinOnce sync.Once
	builtin     *Catalog
)

// Builtin returns the static back-office catalog. It is assembled once
// and shared for the process lifetime.
func Builtin() *Catalog {
	builtinOnce.Do(func() {
		c, err := NewCatalog(builtinModules, builtinDefinitions)
		if err != nil {
			// The builtin tables are compile-time constants; a failure
			// here is a programming defect.
			panic(err)
		}
		builtin = c
	})
	return builtin
}

// Module definition order is the display order of the back office.
var builtinModules = []Module{
	{
		Key:         "devices",
		Label:       "Devices",
		Description: "POS terminals, printers and cash drawers",
		Icon:        "device",
		View:        []string{"device.read"},
		Write:       []string{"device.create", "device.update"},
		Delete:      []string{"device.delete"},
	},
	{
		Key:         "catalog",
		Label:       "Product Catalog",
		Description: "Products, categories and price lists",
		Icon:        "tag",
		View:        []string{"product.read"},
		Write:       []string{"product.create", "product.update"},
		Delete:      []string{"product.delete"},
	},
	{
		Key:         "sales",
		Label:       "Sales",
		Description: "Transactions, refunds and registers",
		Icon:        "cart",
		View:        []string{"sale.read"},
		Write:       []string{"sale.create", "sale.update"},
		Delete:      []string{"sale.void"},
	},
	{
		Key:         "customers",
		Label:       "Customers",
		Description: "Customer directory and loyalty",
		Icon:        "person",
		View:        []string{"customer.read"},
		Write:       []string{"customer.create", "customer.update"},
		Delete:      []string{"customer.delete"},
	},
	{
		Key:         "suppliers",
		Label:       "Suppliers",
		Description: "Supplier directory",
		Icon:        "truck",
		View:        []string{"supplier.read"},
		Write:       []string{"supplier.create", "supplier.update"},
		Delete:      []string{"supplier.delete"},
	},
	{
		Key:         "inventory",
		Label:       "Inventory",
		Description: "Stock levels, adjustments and transfers",
		Icon:        "boxes",
		View:        []string{"stock.read"},
		Write:       []string{"stock.adjust", "stock.transfer"},
		Delete:      nil,
	},
	{
		Key:         "purchasing",
		Label:       "Purchasing",
		Description: "Purchase orders and goods receipts",
		Icon:        "clipboard",
		View:        []string{"purchase.read"},
		Write:       []string{"purchase.create", "purchase.update"},
		Delete:      []string{"purchase.cancel"},
	},
	{
		// Reports are read-only: write/delete are not applicable and
		// stay empty, which makes them unsatisfiable for any slug set.
		Key:         "reports",
		Label:       "Reports",
		Description: "Sales and inventory dashboards",
		Icon:        "chart",
		View:        []string{"report.read"},
		Write:       nil,
		Delete:      nil,
	},
	{
		Key:         "receipts",
		Label:       "Receipt Templates",
		Description: "Printable receipt layouts",
		Icon:        "receipt",
		View:        []string{"receipt.read"},
		Write:       []string{"receipt.update"},
		Delete:      nil,
	},
	{
		Key:         "settings",
		Label:       "Settings",
		Description: "Store profile, taxes and payment types",
		Icon:        "gear",
		View:        []string{"setting.read"},
		Write:       []string{"setting.update"},
		Delete:      nil,
	},
	{
		Key:         "user_management",
		Label:       "Users & Roles",
		Description: "Staff accounts, roles and permissions",
		Icon:        "shield",
		View:        []string{"user.read", "role.read"},
		Write:       []string{"user.create", "user.update", "role.create", "role.update"},
		Delete:      []string{"user.delete", "role.delete"},
	},
}

var builtinDefinitions = []Definition{
	{Slug: "device.read", Name: "View devices", Module: "devices"},
	{Slug: "device.create", Name: "Register devices", Module: "devices"},
	{Slug: "device.update", Name: "Edit devices", Module: "devices"},
	{Slug: "device.delete", Name: "Remove devices", Module: "devices"},
	{Slug: "product.read", Name: "View products", Module: "catalog"},
	{Slug: "product.create", Name: "Create products", Module: "catalog"},
	{Slug: "product.update", Name: "Edit products", Module: "catalog"},
	{Slug: "product.delete", Name: "Delete products", Module: "catalog"},
	{Slug: "sale.read", Name: "View sales", Module: "sales"},
	{Slug: "sale.create", Name: "Record sales", Module: "sales"},
	{Slug: "sale.update", Name: "Amend sales", Module: "sales"},
	{Slug: "sale.void", Name: "Void sales", Module: "sales"},
	{Slug: "customer.read", Name: "View customers", Module: "customers"},
	{Slug: "customer.create", Name: "Create customers", Module: "customers"},
	{Slug: "customer.update", Name: "Edit customers", Module: "customers"},
	{Slug: "customer.delete", Name: "Delete customers", Module: "customers"},
	{Slug: "supplier.read", Name: "View suppliers", Module: "suppliers"},
	{Slug: "supplier.create", Name: "Create suppliers", Module: "suppliers"},
	{Slug: "supplier.update", Name: "Edit suppliers", Module: "suppliers"},
	{Slug: "supplier.delete", Name: "Delete suppliers", Module: "suppliers"},
	{Slug: "stock.read", Name: "View stock", Module: "inventory"},
	{Slug: "stock.adjust", Name: "Adjust stock", Module: "inventory"},
	{Slug: "stock.transfer", Name: "Transfer stock", Module: "inventory"},
	{Slug: "purchase.read", Name: "View purchase orders", Module: "purchasing"},
	{Slug: "purchase.create", Name: "Create purchase orders", Module: "purchasing"},
	{Slug: "purchase.update", Name: "Edit purchase orders", Module: "purchasing"},
	{Slug: "purchase.cancel", Name: "Cancel purchase orders", Module: "purchasing"},
	{Slug: "report.read", Name: "View reports", Module: "reports"},
	{Slug: "receipt.read", Name: "View receipt templates", Module: "receipts"},
	{Slug: "receipt.update", Name: "Edit receipt templates", Module: "receipts"},
	{Slug: "setting.read", Name: "View settings", Module: "settings"},
	{Slug: "setting.update", Name: "Edit settings", Module: "settings"},
	{Slug: "user.read", Name: "View users", Module: "user_management"},
	{Slug: "user.create", Name: "Create users", Module: "user_management"},
	{Slug: "user.update", Name: "Edit users", Module: "user_management"},
	{Slug: "user.delete", Name: "Delete users", Module: "user_management"},
	{Slug: "role.read", Name: "View roles", Module: "user_management"},
	{Slug: "role.create", Name: "Create roles", Module: "user_management"},
	{Slug: "role.update", Name: "Edit roles", Module: "user_management"},
	{Slug: "role.delete", Name: "Delete roles", Module: "user_management"},
}
