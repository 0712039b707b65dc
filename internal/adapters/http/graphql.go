package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the query service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	pixelType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Pixel",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.Int},
			"y": &graphql.Field{Type: graphql.Int},
		},
	})

	crossingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Crossing",
		Fields: graphql.Fields{
			"name":        &graphql.Field{Type: graphql.String},
			"coordinates": &graphql.Field{Type: geoPointType},
			"state": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if c, ok := p.Source.(domain.Crossing); ok {
						return c.State(), nil
					}
					return nil, nil
				},
			},
		},
	})

	detailsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DetectionDetails",
		Fields: graphql.Fields{
			"cloudPixels":     &graphql.Field{Type: graphql.Int},
			"cityLightPixels": &graphql.Field{Type: graphql.Int},
			"totalPixels":     &graphql.Field{Type: graphql.Int},
			"cloudRatio":      &graphql.Field{Type: graphql.Int},
			"cityLightRatio":  &graphql.Field{Type: graphql.Int},
			"threshold":       &graphql.Field{Type: graphql.Int},
			"avgRGB": &graphql.Field{
				Type: graphql.NewList(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if d, ok := p.Source.(*domain.DetectionDetails); ok && d != nil {
						return d.AvgRGB[:], nil
					}
					return nil, nil
				},
			},
		},
	})

	detectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Detection",
		Fields: graphql.Fields{
			"hasClouds":     &graphql.Field{Type: graphql.Boolean},
			"needsHighRes":  &graphql.Field{Type: graphql.Boolean},
			"confidence":    &graphql.Field{Type: graphql.Int},
			"detectionType": &graphql.Field{Type: graphql.String},
			"analysis":      &graphql.Field{Type: graphql.String},
			"details":       &graphql.Field{Type: detailsType},
		},
	})

	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CrossingResult",
		Fields: graphql.Fields{
			"borderNumber": &graphql.Field{Type: graphql.Int},
			"crossing":     &graphql.Field{Type: crossingType},
			"pixel":        &graphql.Field{Type: pixelType},
			"inBounds":     &graphql.Field{Type: graphql.Boolean},
			"detection":    &graphql.Field{Type: detectionType},
		},
	})

	highResType := graphql.NewObject(graphql.ObjectConfig{
		Name: "HighResResult",
		Fields: graphql.Fields{
			"success":      &graphql.Field{Type: graphql.Boolean},
			"borderNumber": &graphql.Field{Type: graphql.Int},
			"crossing":     &graphql.Field{Type: graphql.String},
			"confidence":   &graphql.Field{Type: graphql.Int},
			"filename":     &graphql.Field{Type: graphql.String},
			"relativePath": &graphql.Field{Type: graphql.String},
			"size":         &graphql.Field{Type: graphql.Int},
			"error":        &graphql.Field{Type: graphql.String},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Summary",
		Fields: graphql.Fields{
			"total":               &graphql.Field{Type: graphql.Int},
			"cloudy":              &graphql.Field{Type: graphql.Int},
			"clear":               &graphql.Field{Type: graphql.Int},
			"cityLights":          &graphql.Field{Type: graphql.Int},
			"borderCrossings":     &graphql.Field{Type: graphql.Int},
			"highResImages":       &graphql.Field{Type: graphql.Int},
			"cloudyPercentage":    &graphql.Field{Type: graphql.Int},
			"clearPercentage":     &graphql.Field{Type: graphql.Int},
			"cityLightPercentage": &graphql.Field{Type: graphql.Int},
			"averageConfidence":   &graphql.Field{Type: graphql.Int},
		},
	})

	snapshotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Snapshot",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"timestamp":      &graphql.Field{Type: graphql.String},
			"generated":      &graphql.Field{Type: graphql.DateTime},
			"method":         &graphql.Field{Type: graphql.String},
			"rgbThreshold":   &graphql.Field{Type: graphql.Int},
			"results":        &graphql.Field{Type: graphql.NewList(resultType)},
			"selected":       &graphql.Field{Type: graphql.NewList(graphql.Int)},
			"highResResults": &graphql.Field{Type: graphql.NewList(highResType)},
			"summary":        &graphql.Field{Type: summaryType},
		},
	})

	cycleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CycleSummary",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"timestamp": &graphql.Field{Type: graphql.String},
			"generated": &graphql.Field{Type: graphql.DateTime},
			"summary":   &graphql.Field{Type: summaryType},
		},
	})

	observationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CrossingObservation",
		Fields: graphql.Fields{
			"cycle_id":  &graphql.Field{Type: graphql.String},
			"generated": &graphql.Field{Type: graphql.DateTime},
			"pixel":     &graphql.Field{Type: pixelType},
			"detection": &graphql.Field{Type: detectionType},
		},
	})

	nearbyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NearbyCrossing",
		Fields: graphql.Fields{
			"borderNumber":   &graphql.Field{Type: graphql.Int},
			"crossing":       &graphql.Field{Type: crossingType},
			"distanceMeters": &graphql.Field{Type: graphql.Float},
			"detection":      &graphql.Field{Type: detectionType},
		},
	})

	imageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "HighResImage",
		Fields: graphql.Fields{
			"borderNumber": &graphql.Field{Type: graphql.Int},
			"filename":     &graphql.Field{Type: graphql.String},
			"size":         &graphql.Field{Type: graphql.Int},
			"modified":     &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"latest": &graphql.Field{
				Type:        snapshotType,
				Description: "The most recent detection cycle",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Query.Latest(p.Context)
				},
			},
			"crossings": &graphql.Field{
				Type:        graphql.NewList(crossingType),
				Description: "Monitored crossings in border-number order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Query.Crossings(p.Context)
				},
			},
			"crossing": &graphql.Field{
				Type:        resultType,
				Description: "Latest result for one crossing",
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Query.Crossing(p.Context, p.Args["name"].(string))
				},
			},
			"selection": &graphql.Field{
				Type:        graphql.NewList(resultType),
				Description: "Crossings picked for high-resolution follow-up",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					selected, _, err := deps.Query.Selection(p.Context)
					return selected, err
				},
			},
			"nearby": &graphql.Field{
				Type:        graphql.NewList(nearbyType),
				Description: "Crossings near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 50000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Query.Nearby(p.Context,
						p.Args["lat"].(float64), p.Args["lon"].(float64),
						p.Args["radius"].(float64), p.Args["limit"].(int))
				},
			},
			"history": &graphql.Field{
				Type:        graphql.NewList(cycleType),
				Description: "Past cycles, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					cycles, _, err := deps.Query.History(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return cycles, err
				},
			},
			"crossingHistory": &graphql.Field{
				Type:        graphql.NewList(observationType),
				Description: "Past detections for one crossing",
				Args: graphql.FieldConfigArgument{
					"name":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Query.CrossingHistory(p.Context, p.Args["name"].(string), p.Args["limit"].(int))
				},
			},
			"highResImages": &graphql.Field{
				Type:        graphql.NewList(imageType),
				Description: "Stored follow-up images",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Query.HighResImages(p.Context)
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
		// programming error in the schema definition
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
