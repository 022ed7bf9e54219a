/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep

import (
	"sync"

	"github.com/pcepsim/pcepd/core"
)

var catalogueOnce sync.Once

// LoadCatalogue registers every message, object, TLV and sub-object kind with its framing.
// It runs once per process; later calls return immediately.
func LoadCatalogue() {
	catalogueOnce.Do(func() {
		Subobjects.MustRegister(subobjectKinds...)
		TLVs.MustRegister(tlvKinds...)
		Objects.MustRegister(objectKinds...)
		Messages.MustRegister(messageKinds...)
		Messages.SetFallback(KindMsgGeneric)
		core.LogDebug("Catalogue", "Loaded ", Messages.Kinds(), " messages, ", Objects.Kinds(), " objects, ",
			TLVs.Kinds(), " TLVs, ", Subobjects.Kinds(), " sub-objects")
	})
}
