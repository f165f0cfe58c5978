// Package deploy provides end-to-end scoped provisioning of a disposable
// encrypted workspace and its disposal into blob storage.
//
// Deploy materializes the caller's key into a private temporary file,
// provisions an encrypted filesystem over a fresh backing image, hands the
// mount point to the caller for population, tears everything down, and
// uploads the encrypted image under the requested blob name.
package deploy
