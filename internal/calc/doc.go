// Package calc compiles parsed input decks into a typed multi-dataset
// calculation model, validates the model's physical consistency, and
// gives it a canonical serialized form for content addressing.
//
// Compile applies the inheritance rule (an unsuffixed variable is the
// default for every dataset, a suffixed one overrides for its
// dataset) and types the known variables; Validate collects every
// consistency problem with a stable error code; Canonical and Hash
// provide the deterministic identity the archive keys on. Generate
// goes the other way and emits the standard three-dataset
// phonon/dielectric response deck for a structure.
package calc
