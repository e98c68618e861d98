package testrequest

import "github.com/upstac/upstac/internal/platform/openapi"

// APIDocs describes the routes registered by Handler.RegisterRoutes under
// /api/v1.
func APIDocs() map[string]openapi.Operation {
	const base = "/api/v1"
	return map[string]openapi.Operation{
		"GET " + base + "/labrequests/to-be-tested": {
			Summary: "List INITIATED requests awaiting a tester", Tag: "lab", Role: authRoleTester,
			Response: "TestRequestList", Query: []string{"limit", "offset"},
		},
		"GET " + base + "/labrequests": {
			Summary: "List requests assigned to the calling tester", Tag: "lab", Role: authRoleTester,
			Response: "TestRequestList", Query: []string{"limit", "offset"},
		},
		"PUT " + base + "/labrequests/assign/:id": {
			Summary: "Assign the calling tester and start the lab test", Tag: "lab", Role: authRoleTester,
			Response: "TestRequest",
		},
		"PUT " + base + "/labrequests/update/:id": {
			Summary: "Record the lab result", Tag: "lab", Role: authRoleTester,
			RequestBody: "LabResultInput", Response: "TestRequest",
		},
		"GET " + base + "/consultations/in-queue": {
			Summary: "List LAB_TEST_COMPLETED requests awaiting a doctor", Tag: "consultation", Role: authRoleDoctor,
			Response: "TestRequestList", Query: []string{"limit", "offset"},
		},
		"GET " + base + "/consultations": {
			Summary: "List requests assigned to the calling doctor", Tag: "consultation", Role: authRoleDoctor,
			Response: "TestRequestList", Query: []string{"limit", "offset"},
		},
		"PUT " + base + "/consultations/assign/:id": {
			Summary: "Assign the calling doctor and start the consultation", Tag: "consultation", Role: authRoleDoctor,
			Response: "TestRequest",
		},
		"PUT " + base + "/consultations/update/:id": {
			Summary: "Record the consultation outcome", Tag: "consultation", Role: authRoleDoctor,
			RequestBody: "ConsultationInput", Response: "TestRequest",
		},
		"GET " + base + "/testrequests": {
			Summary: "List requests by status", Tag: "testrequest", Role: authRoleTester + " or " + authRoleDoctor,
			Response: "TestRequestList", Query: []string{"status", "limit", "offset"},
		},
		"GET " + base + "/testrequests/:id": {
			Summary: "Read one request", Tag: "testrequest", Role: authRoleTester + " or " + authRoleDoctor,
			Response: "TestRequest",
		},
	}
}

func stringSchema() map[string]interface{} { return map[string]interface{}{"type": "string"} }

func enumSchema(values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "enum": values}
}

// APISchemas are the component schemas APIDocs refers to.
func APISchemas() map[string]interface{} {
	statuses := make([]string, len(lifecycle))
	for i, s := range lifecycle {
		statuses[i] = string(s)
	}
	actorRef := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"id": stringSchema(), "name": stringSchema()},
	}
	hospitalization := map[string]interface{}{
		"type":     "object",
		"required": []string{"facility", "bed_count"},
		"properties": map[string]interface{}{
			"facility":  stringSchema(),
			"ward":      stringSchema(),
			"bed_count": map[string]interface{}{"type": "integer", "minimum": 0},
		},
	}
	labResult := map[string]interface{}{
		"type":     "object",
		"required": []string{"result"},
		"properties": map[string]interface{}{
			"blood_pressure": stringSchema(),
			"heart_beat":     stringSchema(),
			"temperature":    stringSchema(),
			"oxygen_level":   stringSchema(),
			"comments":       stringSchema(),
			"result":         enumSchema(string(OutcomePositive), string(OutcomeNegative)),
		},
	}
	consultation := map[string]interface{}{
		"type":     "object",
		"required": []string{"suggestion"},
		"properties": map[string]interface{}{
			"suggestion":      enumSchema(string(SuggestionNoIssues), string(SuggestionHomeQuarantine), string(SuggestionHospitalized)),
			"comments":        stringSchema(),
			"hospitalization": hospitalization,
		},
	}

	return map[string]interface{}{
		"LabResultInput":    labResult,
		"ConsultationInput": consultation,
		"TestRequest": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":              map[string]interface{}{"type": "string", "format": "uuid"},
				"patient_name":    stringSchema(),
				"gender":          stringSchema(),
				"age":             map[string]interface{}{"type": "integer"},
				"email":           stringSchema(),
				"phone_number":    stringSchema(),
				"address":         stringSchema(),
				"pin_code":        stringSchema(),
				"status":          enumSchema(statuses...),
				"assigned_tester": actorRef,
				"assigned_doctor": actorRef,
				"lab_result":      labResult,
				"consultation":    consultation,
				"version_id":      map[string]interface{}{"type": "integer"},
				"created_at":      map[string]interface{}{"type": "string", "format": "date-time"},
				"updated_at":      map[string]interface{}{"type": "string", "format": "date-time"},
			},
		},
		"TestRequestList": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"data":     map[string]interface{}{"type": "array", "items": map[string]string{"$ref": "#/components/schemas/TestRequest"}},
				"total":    map[string]interface{}{"type": "integer"},
				"limit":    map[string]interface{}{"type": "integer"},
				"offset":   map[string]interface{}{"type": "integer"},
				"has_more": map[string]interface{}{"type": "boolean"},
			},
		},
	}
}
