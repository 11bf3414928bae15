package shopify

// DraftOrderCreateMutation creates a draft order
const DraftOrderCreateMutation = `
mutation draftOrderCreate($input: DraftOrderInput!) {
  draftOrderCreate(input: $input) {
    draftOrder {
      id
      name
      invoiceUrl
    }
    userErrors {
      field
      message
    }
  }
}
`

// DraftOrderInput represents the input for creating a draft order
type DraftOrderInput struct {
	LineItems        []DraftOrderLineItemInput  `json:"lineItems"`
	Tags             []string                   `json:"tags,omitempty"`
	Note             *string                    `json:"note,omitempty"`
	CustomAttributes []DraftOrderAttributeInput `json:"customAttributes,omitempty"`
}

type DraftOrderLineItemInput struct {
	VariantID        string                     `json:"variantId"`
	Quantity         int                        `json:"quantity"`
	AppliedDiscount  *AppliedDiscountInput      `json:"appliedDiscount,omitempty"`
	CustomAttributes []DraftOrderAttributeInput `json:"customAttributes,omitempty"`
}

// AppliedDiscountInput carries the dealer discount as a fixed per-unit amount
type AppliedDiscountInput struct {
	Title     string `json:"title"`
	Value     string `json:"value"`
	ValueType string `json:"valueType"`
}

type DraftOrderAttributeInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
