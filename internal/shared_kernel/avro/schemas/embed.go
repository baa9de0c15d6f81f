package schemas

import _ "embed"

//go:embed event_key.avsc
var EventKey string

//go:embed arrival_value.avsc
var ArrivalValue string
