package domain

// KeyPrefix namespaces every key the service writes to the shared store.
// Overridden at startup from storage.key_prefix.
var KeyPrefix = "chatdex:"
