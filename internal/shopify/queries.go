package shopify

// ProductVariantQuery fetches one variant with the product fields the catalog needs
const ProductVariantQuery = `
query getVariant($id: ID!) {
  productVariant(id: $id) {
    id
    sku
    title
    price
    availableForSale
    inventoryQuantity
    product {
      id
      title
      status
      tags
    }
  }
}
`

// VariantBySKUQuery finds the first variant carrying a SKU
const VariantBySKUQuery = `
query getVariantBySKU($query: String!) {
  productVariants(first: 1, query: $query) {
    edges {
      node {
        id
        sku
        title
        price
        availableForSale
        inventoryQuantity
        product {
          id
          title
          status
          tags
        }
      }
    }
  }
}
`
