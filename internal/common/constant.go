package common

// TempIDPrefix marks identifiers assigned locally before the first
// successful create round-trip. The pending-mutation flush replaces them
// with the server-assigned id.
const TempIDPrefix = "tmp-"
