package through

// Describe exposes describe for white-box tests of declaration defaults.
var Describe = describe
