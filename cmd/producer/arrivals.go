package main

import (
	"context"
	"fmt"
)

// arrival matches schemas.ArrivalValue.
type arrival struct {
	StationID     int     `avro:"station_id"`
	TrainID       string  `avro:"train_id"`
	Direction     string  `avro:"direction"`
	Line          string  `avro:"line"`
	TrainStatus   string  `avro:"train_status"`
	PrevStationID *int    `avro:"prev_station_id"`
	PrevDirection *string `avro:"prev_direction"`
}

var (
	_lines      = []string{"blue", "red", "green"}
	_directions = []string{"a", "b"}
	_statuses   = []string{"on_time", "on_time", "delayed"}
)

const _firstStationID = 40010

// exampleArrival walks a train along consecutive stations. The first
// arrival of every line has no previous station.
func exampleArrival(seq int) arrival {
	line := _lines[seq%len(_lines)]
	stop := seq / len(_lines)
	direction := _directions[stop%len(_directions)]

	value := arrival{
		StationID:   _firstStationID + stop*10,
		TrainID:     fmt.Sprintf("%s-%03d", line, seq%len(_lines)),
		Direction:   direction,
		Line:        line,
		TrainStatus: _statuses[seq%len(_statuses)],
	}
	if stop > 0 {
		prevStation := value.StationID - 10
		prevDirection := _directions[(stop-1)%len(_directions)]
		value.PrevStationID = &prevStation
		value.PrevDirection = &prevDirection
	}
	return value
}

type unmarshaler interface {
	Unmarshal(ctx context.Context, data []byte, target any) error
}

// arrivalDecoder decodes tailed values into arrival structs.
type arrivalDecoder struct {
	serde unmarshaler
}

func (d arrivalDecoder) Decode(ctx context.Context, data []byte) (any, error) {
	var value arrival
	if err := d.serde.Unmarshal(ctx, data, &value); err != nil {
		return nil, err
	}
	return value, nil
}
