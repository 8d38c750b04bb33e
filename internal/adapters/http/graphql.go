package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/tripdesk/internal/core/domain"
)

// buildSchema creates the read-only GraphQL schema over trips and quotes.
// Field names follow the JSON tags of the domain types, which the default
// resolver matches on.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"name":       &graphql.Field{Type: graphql.String},
			"address":    &graphql.Field{Type: graphql.String},
			"coordinate": &graphql.Field{Type: coordinateType},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TripLeg",
		Fields: graphql.Fields{
			"point":              &graphql.Field{Type: geoPointType},
			"expected_arrival":   &graphql.Field{Type: graphql.DateTime},
			"expected_departure": &graphql.Field{Type: graphql.DateTime},
			"status":             &graphql.Field{Type: graphql.String},
			"reached_at":         &graphql.Field{Type: graphql.DateTime},
		},
	})

	tripType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trip",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"trip_type":       &graphql.Field{Type: graphql.String},
			"status":          &graphql.Field{Type: graphql.String},
			"vehicle_id":      &graphql.Field{Type: graphql.String},
			"driver_id":       &graphql.Field{Type: graphql.String},
			"start":           &graphql.Field{Type: legType},
			"stops":           &graphql.Field{Type: graphql.NewList(legType)},
			"end":             &graphql.Field{Type: legType},
			"scheduled_start": &graphql.Field{Type: graphql.DateTime},
			"scheduled_end":   &graphql.Field{Type: graphql.DateTime},
			"distance_km":     &graphql.Field{Type: graphql.Float},
			"duration_min":    &graphql.Field{Type: graphql.Float},
			"amount_per_km":   &graphql.Field{Type: graphql.Float},
			"vehicle_rent":    &graphql.Field{Type: graphql.Float},
			"is_two_way":      &graphql.Field{Type: graphql.Boolean},
			"total_amount":    &graphql.Field{Type: graphql.Float},
			"started_at":      &graphql.Field{Type: graphql.DateTime},
			"ended_at":        &graphql.Field{Type: graphql.DateTime},
			"settled_at":      &graphql.Field{Type: graphql.DateTime},
			"duration_label": &graphql.Field{
				Type:        graphql.String,
				Description: "Planned duration formatted for display",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t, ok := p.Source.(domain.Trip)
					if !ok {
						if tp, ok := p.Source.(*domain.Trip); ok && tp != nil {
							t = *tp
						}
					}
					return deps.Quotes.FormatDuration(t.DurationMin), nil
				},
			},
		},
	})

	priceQuoteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PriceQuote",
		Fields: graphql.Fields{
			"distance_km":     &graphql.Field{Type: graphql.Float},
			"billable_km":     &graphql.Field{Type: graphql.Float},
			"amount_per_km":   &graphql.Field{Type: graphql.Float},
			"distance_amount": &graphql.Field{Type: graphql.Float},
			"vehicle_rent":    &graphql.Field{Type: graphql.Float},
			"is_two_way":      &graphql.Field{Type: graphql.Boolean},
			"total":           &graphql.Field{Type: graphql.Float},
		},
	})

	busyIntervalType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BusyInterval",
		Fields: graphql.Fields{
			"resource_type": &graphql.Field{Type: graphql.String},
			"resource_id":   &graphql.Field{Type: graphql.String},
			"start":         &graphql.Field{Type: graphql.DateTime},
			"end":           &graphql.Field{Type: graphql.DateTime},
			"trip_id":       &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"trip": &graphql.Field{
				Type:        tripType,
				Description: "Get a trip by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Trips.Get(p.Context, p.Args["id"].(string))
				},
			},
			"trips": &graphql.Field{
				Type:        graphql.NewList(tripType),
				Description: "List trips, optionally filtered",
				Args: graphql.FieldConfigArgument{
					"status":     &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"vehicle_id": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"driver_id":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"offset":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Trips.List(p.Context, domain.TripFilter{
						Status:    domain.TripStatus(p.Args["status"].(string)),
						VehicleID: p.Args["vehicle_id"].(string),
						DriverID:  p.Args["driver_id"].(string),
						Offset:    p.Args["offset"].(int),
						Limit:     p.Args["limit"].(int),
					})
				},
			},
			"busyIntervals": &graphql.Field{
				Type:        graphql.NewList(busyIntervalType),
				Description: "Windows a vehicle or driver is already booked",
				Args: graphql.FieldConfigArgument{
					"resource_type": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"id":            &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rt := domain.ResourceType(p.Args["resource_type"].(string))
					return deps.Availability.BusyIntervals(p.Context, rt, p.Args["id"].(string))
				},
			},
			"priceQuote": &graphql.Field{
				Type:        priceQuoteType,
				Description: "Price a trip without booking it",
				Args: graphql.FieldConfigArgument{
					"distance_km":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"amount_per_km": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"vehicle_rent":  &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"is_two_way":    &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Quotes.Price(
						p.Args["distance_km"].(float64),
						p.Args["amount_per_km"].(float64),
						p.Args["vehicle_rent"].(float64),
						p.Args["is_two_way"].(bool),
					)
				},
			},
			"formatDuration": &graphql.Field{
				Type:        graphql.String,
				Description: "Render a duration in minutes for display",
				Args: graphql.FieldConfigArgument{
					"minutes": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Quotes.FormatDuration(p.Args["minutes"].(float64)), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
