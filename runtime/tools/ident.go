package tools

// Ident is a globally unique tool identifier within one assembled tool map.
type Ident string
