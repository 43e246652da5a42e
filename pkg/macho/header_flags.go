package macho

import "strings"

type HeaderFlags uint32

const (
	FlagNoUndefs                   HeaderFlags = 0x1
	FlagIncrLink                   HeaderFlags = 0x2
	FlagDyldLink                   HeaderFlags = 0x4
	FlagBindAtLoad                 HeaderFlags = 0x8
	FlagPrebound                   HeaderFlags = 0x10
	FlagSplitSegs                  HeaderFlags = 0x20
	FlagLazyInit                   HeaderFlags = 0x40
	FlagTwoLevel                   HeaderFlags = 0x80
	FlagForceFlat                  HeaderFlags = 0x100
	FlagNoMultiDefs                HeaderFlags = 0x200
	FlagNoFixPrebinding            HeaderFlags = 0x400
	FlagPrebindable                HeaderFlags = 0x800
	FlagAllModsBound               HeaderFlags = 0x1000
	FlagSubsectionsViaSymbols      HeaderFlags = 0x2000
	FlagCanonical                  HeaderFlags = 0x4000
	FlagWeakDefines                HeaderFlags = 0x8000
	FlagBindsToWeak                HeaderFlags = 0x10000
	FlagAllowStackExecution        HeaderFlags = 0x20000
	FlagRootSafe                   HeaderFlags = 0x40000
	FlagSetuidSafe                 HeaderFlags = 0x80000
	FlagNoReexportedDylibs         HeaderFlags = 0x100000
	FlagPIE                        HeaderFlags = 0x200000
	FlagDeadStrippableDylib        HeaderFlags = 0x400000
	FlagHasTLVDescriptors          HeaderFlags = 0x800000
	FlagNoHeapExecution            HeaderFlags = 0x1000000
	FlagAppExtensionSafe           HeaderFlags = 0x2000000
	FlagNlistOutofsyncWithDyldinfo HeaderFlags = 0x4000000
	FlagSimSupport                 HeaderFlags = 0x8000000
	FlagDylibInCache               HeaderFlags = 0x80000000
)

func (f HeaderFlags) NoUndefs() bool {
	return (f & FlagNoUndefs) != 0
}
func (f HeaderFlags) IncrLink() bool {
	return (f & FlagIncrLink) != 0
}
func (f HeaderFlags) DyldLink() bool {
	return (f & FlagDyldLink) != 0
}
func (f HeaderFlags) BindAtLoad() bool {
	return (f & FlagBindAtLoad) != 0
}
func (f HeaderFlags) Prebound() bool {
	return (f & FlagPrebound) != 0
}
func (f HeaderFlags) SplitSegs() bool {
	return (f & FlagSplitSegs) != 0
}
func (f HeaderFlags) LazyInit() bool {
	return (f & FlagLazyInit) != 0
}
func (f HeaderFlags) TwoLevel() bool {
	return (f & FlagTwoLevel) != 0
}
func (f HeaderFlags) ForceFlat() bool {
	return (f & FlagForceFlat) != 0
}
func (f HeaderFlags) NoMultiDefs() bool {
	return (f & FlagNoMultiDefs) != 0
}
func (f HeaderFlags) NoFixPrebinding() bool {
	return (f & FlagNoFixPrebinding) != 0
}
func (f HeaderFlags) Prebindable() bool {
	return (f & FlagPrebindable) != 0
}
func (f HeaderFlags) AllModsBound() bool {
	return (f & FlagAllModsBound) != 0
}
func (f HeaderFlags) SubsectionsViaSymbols() bool {
	return (f & FlagSubsectionsViaSymbols) != 0
}
func (f HeaderFlags) Canonical() bool {
	return (f & FlagCanonical) != 0
}
func (f HeaderFlags) WeakDefines() bool {
	return (f & FlagWeakDefines) != 0
}
func (f HeaderFlags) BindsToWeak() bool {
	return (f & FlagBindsToWeak) != 0
}
func (f HeaderFlags) AllowStackExecution() bool {
	return (f & FlagAllowStackExecution) != 0
}
func (f HeaderFlags) RootSafe() bool {
	return (f & FlagRootSafe) != 0
}
func (f HeaderFlags) SetuidSafe() bool {
	return (f & FlagSetuidSafe) != 0
}
func (f HeaderFlags) NoReexportedDylibs() bool {
	return (f & FlagNoReexportedDylibs) != 0
}
func (f HeaderFlags) PIE() bool {
	return (f & FlagPIE) != 0
}
func (f HeaderFlags) DeadStrippableDylib() bool {
	return (f & FlagDeadStrippableDylib) != 0
}
func (f HeaderFlags) HasTLVDescriptors() bool {
	return (f & FlagHasTLVDescriptors) != 0
}
func (f HeaderFlags) NoHeapExecution() bool {
	return (f & FlagNoHeapExecution) != 0
}
func (f HeaderFlags) AppExtensionSafe() bool {
	return (f & FlagAppExtensionSafe) != 0
}
func (f HeaderFlags) NlistOutofsyncWithDyldinfo() bool {
	return (f & FlagNlistOutofsyncWithDyldinfo) != 0
}
func (f HeaderFlags) SimSupport() bool {
	return (f & FlagSimSupport) != 0
}
func (f HeaderFlags) DylibInCache() bool {
	return (f & FlagDylibInCache) != 0
}

func (fs HeaderFlags) String() string {
	var fStr string
	if fs.NoUndefs() {
		fStr += "NoUndefs "
	}
	if fs.IncrLink() {
		fStr += "IncrLink "
	}
	if fs.DyldLink() {
		fStr += "DyldLink "
	}
	if fs.BindAtLoad() {
		fStr += "BindAtLoad "
	}
	if fs.Prebound() {
		fStr += "Prebound "
	}
	if fs.SplitSegs() {
		fStr += "SplitSegs "
	}
	if fs.LazyInit() {
		fStr += "LazyInit "
	}
	if fs.TwoLevel() {
		fStr += "TwoLevel "
	}
	if fs.ForceFlat() {
		fStr += "ForceFlat "
	}
	if fs.NoMultiDefs() {
		fStr += "NoMultiDefs "
	}
	if fs.NoFixPrebinding() {
		fStr += "NoFixPrebinding "
	}
	if fs.Prebindable() {
		fStr += "Prebindable "
	}
	if fs.AllModsBound() {
		fStr += "AllModsBound "
	}
	if fs.SubsectionsViaSymbols() {
		fStr += "SubsectionsViaSymbols "
	}
	if fs.Canonical() {
		fStr += "Canonical "
	}
	if fs.WeakDefines() {
		fStr += "WeakDefines "
	}
	if fs.BindsToWeak() {
		fStr += "BindsToWeak "
	}
	if fs.AllowStackExecution() {
		fStr += "AllowStackExecution "
	}
	if fs.RootSafe() {
		fStr += "RootSafe "
	}
	if fs.SetuidSafe() {
		fStr += "SetuidSafe "
	}
	if fs.NoReexportedDylibs() {
		fStr += "NoReexportedDylibs "
	}
	if fs.PIE() {
		fStr += "PIE "
	}
	if fs.DeadStrippableDylib() {
		fStr += "DeadStrippableDylib "
	}
	if fs.HasTLVDescriptors() {
		fStr += "HasTLVDescriptors "
	}
	if fs.NoHeapExecution() {
		fStr += "NoHeapExecution "
	}
	if fs.AppExtensionSafe() {
		fStr += "AppExtensionSafe "
	}
	if fs.NlistOutofsyncWithDyldinfo() {
		fStr += "NlistOutofsyncWithDyldinfo "
	}
	if fs.SimSupport() {
		fStr += "SimSupport "
	}
	if fs.DylibInCache() {
		fStr += "DylibInCache "
	}
	return strings.TrimSpace(fStr)
}
