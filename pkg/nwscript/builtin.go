package nwscript

import "sync"

func intDefault(n int32) *Value { return &Value{Type: Int, Int: n} }
func objectDefault(n int32) *Value { return &Value{Type: Object, Int: n} }

// builtinActions are the leading routines of the KotOR table, in routine
// number order. Scripts needing more routines load a full nwscript.nss.
var builtinActions = []Routine{
	{Name: "Random", Return: Int, Params: []Param{{Name: "nMaxInteger", Type: Int}}},
	{Name: "PrintString", Return: Void, Params: []Param{{Name: "sString", Type: String}}},
	{Name: "PrintFloat", Return: Void, Params: []Param{
		{Name: "fFloat", Type: Float},
		{Name: "nWidth", Type: Int, Default: intDefault(18)},
		{Name: "nDecimals", Type: Int, Default: intDefault(9)},
	}},
	{Name: "FloatToString", Return: String, Params: []Param{
		{Name: "fFloat", Type: Float},
		{Name: "nWidth", Type: Int, Default: intDefault(18)},
		{Name: "nDecimals", Type: Int, Default: intDefault(9)},
	}},
	{Name: "PrintInteger", Return: Void, Params: []Param{{Name: "nInteger", Type: Int}}},
	{Name: "PrintObject", Return: Void, Params: []Param{{Name: "oObject", Type: Object}}},
	{Name: "AssignCommand", Return: Void, Params: []Param{
		{Name: "oActionSubject", Type: Object},
		{Name: "aActionToAssign", Type: Action},
	}},
	{Name: "DelayCommand", Return: Void, Params: []Param{
		{Name: "fSeconds", Type: Float},
		{Name: "aActionToDelay", Type: Action},
	}},
	{Name: "ExecuteScript", Return: Void, Params: []Param{
		{Name: "sScript", Type: String},
		{Name: "oTarget", Type: Object, Default: objectDefault(ObjectSelf)},
		{Name: "nScriptVar", Type: Int, Default: intDefault(-1)},
	}},
	{Name: "ClearAllActions", Return: Void},
	{Name: "SetFacing", Return: Void, Params: []Param{{Name: "fDirection", Type: Float}}},
}

var builtinConstants = []Constant{
	{Name: "TRUE", Value: Value{Type: Int, Int: 1}},
	{Name: "FALSE", Value: Value{Type: Int, Int: 0}},
	{Name: "PI", Value: Value{Type: Float, Float: 3.141592}},
}

var (
	builtinOnce  sync.Once
	builtinTable *Table
)

// Builtin returns the shared built-in table. Callers must not mutate it.
func Builtin() *Table {
	builtinOnce.Do(func() {
		builtinTable = NewTable(builtinActions, builtinConstants)
	})
	return builtinTable
}
