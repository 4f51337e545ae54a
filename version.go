package jsarray

// Version is the engine version. Scenario files state the versions they apply to against it.
const Version = "0.4.0"
