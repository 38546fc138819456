// ABOUTME: Static fallback demo data when no OpenAI API key is available.
// ABOUTME: Cycles a fixed set of suppliers, customers and products.

package seed

import "fmt"

var staticSuppliers = []Supplier{
	{Name: "Northwind Fasteners", ContactInfo: "orders@northwind-fasteners.example", Address: "14 Mill Road, Leeds"},
	{Name: "Bolt & Beam Co.", ContactInfo: "+44 113 555 0142", Address: "2 Quay Street, Bristol"},
	{Name: "Harbor Timber Supply", ContactInfo: "sales@harbortimber.example", Address: "88 Dockside Way, Hull"},
	{Name: "Voltline Electrical", ContactInfo: "trade@voltline.example", Address: "Unit 5, Riverside Park, Derby"},
	{Name: "Clearflow Plumbing Parts", ContactInfo: "+44 161 555 0199", Address: "31 Canal Street, Manchester"},
	{Name: "Brightcoat Paints", ContactInfo: "accounts@brightcoat.example", Address: "7 Foundry Lane, Sheffield"},
	{Name: "Ironside Tools", ContactInfo: "support@ironside.example", Address: "120 Forge Avenue, Birmingham"},
	{Name: "Granite Aggregates", ContactInfo: "+44 1224 555 010", Address: "Quarry Road, Aberdeen"},
}

var staticCustomers = []Customer{
	{Name: "Patel Building Services", ContactInfo: "office@patelbuild.example"},
	{Name: "Greenleaf Landscaping", ContactInfo: "+44 20 7946 0321"},
	{Name: "Corner Hardware Store", ContactInfo: "buyer@cornerhardware.example"},
	{Name: "M. Okafor", ContactInfo: "m.okafor@mail.example"},
	{Name: "Summit Roofing Ltd", ContactInfo: "jobs@summitroofing.example"},
	{Name: "Riverside Housing Trust", ContactInfo: "maintenance@riversidehousing.example"},
	{Name: "J. Lindqvist", ContactInfo: "+44 7700 900 412"},
	{Name: "Keystone Renovations", ContactInfo: "hello@keystone-reno.example"},
}

var staticProducts = []Product{
	{Name: "Claw Hammer 16oz", Category: "Tools", Unit: "pcs", UnitPrice: 14.99, ReorderLevel: 20},
	{Name: "Wood Screws 4x40mm", Category: "Fasteners", Unit: "box", UnitPrice: 6.5, ReorderLevel: 50},
	{Name: "Cordless Drill 18V", Category: "Tools", Unit: "pcs", UnitPrice: 89, ReorderLevel: 8},
	{Name: "Twin & Earth Cable 2.5mm", Category: "Electrical", Unit: "m", UnitPrice: 1.2, ReorderLevel: 200},
	{Name: "Copper Pipe 15mm", Category: "Plumbing", Unit: "m", UnitPrice: 4.75, ReorderLevel: 100},
	{Name: "Interior Emulsion White", Category: "Paint", Unit: "l", UnitPrice: 3.4, ReorderLevel: 60},
	{Name: "Treated Timber 47x100", Category: "Lumber", Unit: "m", UnitPrice: 2.85, ReorderLevel: 150},
	{Name: "Wall Plugs Assorted", Category: "Fasteners", Unit: "box", UnitPrice: 4.2, ReorderLevel: 40},
	{Name: "Spirit Level 600mm", Category: "Tools", Unit: "pcs", UnitPrice: 12.3, ReorderLevel: 15},
	{Name: "Ready-mix Concrete", Category: "Lumber", Unit: "kg", UnitPrice: 0.35, ReorderLevel: 500},
}

// generateStatic returns count records of each collection. Cycled records
// get a numeric suffix so names stay unique.
func generateStatic(count int) *Data {
	return &Data{
		Suppliers: cycle(staticSuppliers, count, func(s Supplier, n int) Supplier {
			s.Name = fmt.Sprintf("%s %d", s.Name, n)
			return s
		}),
		Customers: cycle(staticCustomers, count, func(c Customer, n int) Customer {
			c.Name = fmt.Sprintf("%s %d", c.Name, n)
			return c
		}),
		Products: cycle(staticProducts, count, func(p Product, n int) Product {
			p.Name = fmt.Sprintf("%s %d", p.Name, n)
			return p
		}),
	}
}

func cycle[T any](templates []T, count int, rename func(T, int) T) []T {
	result := make([]T, count)
	for i := 0; i < count; i++ {
		item := templates[i%len(templates)]
		if i >= len(templates) {
			item = rename(item, i/len(templates)+1)
		}
		result[i] = item
	}
	return result
}
