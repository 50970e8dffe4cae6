// Package testutil provides shared fixtures for tests across the codebase.
// This follows the Go convention of a shared test utility package (like net/http/httptest).
package testutil

import (
	"testing"

	"github.com/conduit-lang/dictquery/internal/dictionary"
)

// SalesDictionaryYAML is a small sales-order dictionary: an order window with header,
// line and translation tabs, a product browser and a parameter group.
const SalesDictionaryYAML = `
tables:
  - name: C_BPartner
    columns:
      - {name: C_BPartner_ID, type: id, key: true}
      - {name: Value, type: string, searchable: true}
      - {name: Name, type: string, searchable: true, identifier: true}
      - {name: IsCustomer, type: yes_no}
      - {name: AD_Client_ID, type: integer}
      - {name: IsActive, type: yes_no}
  - name: C_DocType
    columns:
      - {name: C_DocType_ID, type: id, key: true}
      - {name: Name, type: string, identifier: true}
      - {name: IsSOTrx, type: yes_no}
  - name: M_Product_Category
    columns:
      - {name: M_Product_Category_ID, type: id, key: true}
      - {name: Name, type: string, identifier: true}
  - name: M_Product
    columns:
      - {name: M_Product_ID, type: id, key: true}
      - {name: Value, type: string, searchable: true}
      - {name: Name, type: string, searchable: true, identifier: true}
      - {name: M_Product_Category_ID, type: table_direct, reference: M_Product_Category_ID}
      - {name: IsActive, type: yes_no}
  - name: AD_Ref_List
    columns:
      - {name: AD_Ref_List_ID, type: id, key: true}
      - {name: AD_Reference_ID, type: integer}
      - {name: Value, type: string}
      - {name: Name, type: string, identifier: true}
  - name: C_Order
    columns:
      - {name: C_Order_ID, type: id, key: true}
      - {name: DocumentNo, type: string, searchable: true, identifier: true}
      - name: DocStatus
        type: list
        reference: DocStatus
        read_only_logic: "@DocStatus@!'DR'"
      - {name: DocStatusAlt, type: string}
      - name: DocAction
        type: string
        read_only_logic: "@DocStatus@='CO' | @DocStatus@='CL'"
      - {name: IsSOTrx, type: yes_no}
      - name: C_DocType_ID
        type: table_direct
        reference: C_DocType_ID
        validation_rule: DocTypeSOTrx
      - name: C_BPartner_ID
        type: search
        reference: C_BPartner
        validation_rule: BPartnerSOTrx
      - {name: DateOrdered, type: date}
      - name: Description
        type: text
        display_logic: "@DocStatus@='DR'"
      - name: POReference
        type: string
        mandatory_logic: "@DocStatusAlt@='Y'"
      - {name: AD_Org_ID, type: integer}
  - name: C_OrderLine
    columns:
      - {name: C_OrderLine_ID, type: id, key: true}
      - {name: C_Order_ID, type: id, parent: true}
      - {name: Line, type: integer}
      - {name: M_Product_ID, type: search, reference: M_Product}
      - name: QtyOrdered
        type: amount
        read_only_logic: "@DocStatus@='CO'"
  - name: C_Order_Trl
    columns:
      - {name: C_Order_ID, type: id, key: true, parent: true}
      - {name: AD_Language, type: string, key: true}
      - name: Description
        type: text
        translated: true
        display_logic: "@DocStatus@='DR'"

validation_rules:
  - id: DocTypeSOTrx
    name: Document types matching the order direction
    code: "C_DocType.IsSOTrx='@IsSOTrx@'"
  - id: BPartnerSOTrx
    name: Customers on sales orders
    code: "C_BPartner.IsCustomer='@IsSOTrx@'"
  - id: ClientPartners
    name: Partners of the login client
    code: "C_BPartner.AD_Client_ID=@#AD_Client_ID@"

references:
  - {id: DocStatus, kind: list, reference_value: "131"}
  - id: C_BPartner
    kind: search
    table: C_BPartner
    key_column: C_BPartner_ID
    value_column: Value
    display_column: Name
    where: "C_BPartner.IsActive='Y'"
  - id: C_BPartner_Client
    kind: table
    table: C_BPartner
    key_column: C_BPartner_ID
    value_column: Value
    display_column: Name
    validation_rule: ClientPartners
  - {id: C_DocType_ID, kind: table_direct, table: C_DocType, key_column: C_DocType_ID, display_column: Name}
  - {id: M_Product_Category_ID, kind: table_direct, table: M_Product_Category, key_column: M_Product_Category_ID, display_column: Name}
  - {id: M_Product, kind: search, table: M_Product, key_column: M_Product_ID, value_column: Value, display_column: Name}
  - {id: Text, kind: plain}

containers:
  - id: c-order
    name: Order
    kind: tab
    table: C_Order
    window: w-order
    where: "C_Order.IsSOTrx='@IsSOTrx@'"
    order_by: "C_Order.DocumentNo"
    fields:
      - {id: f-documentno, name: Document No, column: DocumentNo}
      - {id: f-docstatus, name: Document Status, column: DocStatus}
      - {id: f-docstatusalt, name: Alternate Status, column: DocStatusAlt}
      - {id: f-docaction, name: Document Action, column: DocAction}
      - {id: f-issotrx, name: Sales Transaction, column: IsSOTrx}
      - {id: f-doctype, name: Document Type, column: C_DocType_ID}
      - {id: f-bpartner, name: Business Partner, column: C_BPartner_ID}
      - {id: f-dateordered, name: Date Ordered, column: DateOrdered, default_value: "@#Date@"}
      - {id: f-description, name: Description, column: Description}
      - {id: f-poreference, name: Order Reference, column: POReference}
      - {id: f-org, name: Organization, column: AD_Org_ID, inactive: true, display_logic: "@DocStatus@='DR'"}
  - id: c-orderline
    name: Order Line
    kind: tab
    table: C_OrderLine
    window: w-order
    parent: c-order
    where: "C_OrderLine.C_Order_ID=@C_Order_ID@"
    order_by: "C_OrderLine.Line"
    fields:
      - {id: f-line, name: Line, column: Line}
      - {id: f-product, name: Product, column: M_Product_ID}
      - {id: f-qtyordered, name: Quantity, column: QtyOrdered}
  - id: c-order-trl
    name: Order Translation
    kind: tab
    table: C_Order_Trl
    window: w-order
    parent: c-order
    translation: true
    where: "C_Order_Trl.C_Order_ID=@C_Order_ID@"
    fields:
      - {id: f-trl-language, name: Language, column: AD_Language}
      - {id: f-trl-description, name: Description, column: Description}
  - id: c-product
    name: Products
    kind: browser
    table: M_Product
    where: "M_Product.IsActive='Y'"
    fields:
      - {id: f-p-value, name: Search Key, column: Value}
      - {id: f-p-name, name: Name, column: Name}
      - {id: f-p-category, name: Category, column: M_Product_Category_ID}
  - id: c-params
    name: Product Parameters
    kind: parameters
    table: M_Product
    fields:
      - {id: f-param-category, name: Category, column: M_Product_Category_ID}

windows:
  - id: w-order
    name: Sales Order
    containers: [c-order, c-orderline, c-order-trl]
`

// SalesRegistry parses SalesDictionaryYAML and fails the test on error
func SalesRegistry(t testing.TB) *dictionary.Registry {
	t.Helper()
	registry, err := dictionary.Parse([]byte(SalesDictionaryYAML))
	if err != nil {
		t.Fatalf("failed to load sales dictionary: %v", err)
	}
	return registry
}

// MustParse parses dictionary YAML and fails the test on error
func MustParse(t testing.TB, yamlText string) *dictionary.Registry {
	t.Helper()
	registry, err := dictionary.Parse([]byte(yamlText))
	if err != nil {
		t.Fatalf("failed to load dictionary: %v", err)
	}
	return registry
}
