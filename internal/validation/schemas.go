package validation

// JSON Schemas for every oracle response shape and for the run spec.
// Kept as embedded strings so the binary is self-contained.

const learnPatternsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["patterns"],
  "properties": {
    "patterns": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["regex"],
        "properties": {
          "example": {"type": "string"},
          "regex": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    }
  }
}`

const confirmBoundariesSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["confirmed"],
  "properties": {
    "confirmed": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["line"],
        "properties": {
          "line": {"type": "integer"},
          "corrected_line": {"type": "integer"}
        }
      }
    },
    "false_positives": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["line"],
        "properties": {
          "line": {"type": "integer"},
          "reason": {"type": "string"}
        }
      }
    }
  }
}`

const classifyTurnSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["action_content", "observation_lines"],
  "properties": {
    "action_content": {"type": "string"},
    "observation_lines": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

const verifyTurnsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["turns"],
  "properties": {
    "turns": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["turn_id", "is_single_turn", "is_hallucinated"],
        "properties": {
          "turn_id": {"type": "integer"},
          "is_single_turn": {"type": "boolean"},
          "is_hallucinated": {"type": "boolean"},
          "issue": {"type": "string"}
        }
      }
    },
    "missing": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["after_turn_id"],
        "properties": {
          "after_turn_id": {"type": "integer"},
          "reason": {"type": "string"}
        }
      }
    }
  }
}`

const judgeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["winner", "confidence", "reason"],
  "properties": {
    "winner": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "reason": {"type": "string"},
    "suitable_for_training": {"type": "boolean"},
    "rejection_type": {"type": "string"},
    "rejection_reason": {"type": "string"}
  },
  "additionalProperties": true
}`

const runSpecSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["input_dir", "output_dir", "models", "judge_model"],
  "properties": {
    "name": {"type": "string"},
    "input_dir": {"type": "string", "minLength": 1},
    "output_dir": {"type": "string", "minLength": 1},
    "models": {
      "type": "array",
      "minItems": 2,
      "items": {"type": "string", "minLength": 1}
    },
    "judge_model": {"type": "string", "minLength": 1},
    "limits": {
      "type": "object",
      "properties": {
        "max_concurrent": {"type": "integer", "minimum": 1},
        "max_input_tokens": {"type": "integer", "minimum": 0}
      }
    },
    "thresholds": {
      "type": "object",
      "properties": {
        "turn_similarity": {"type": "number", "minimum": 0, "maximum": 1},
        "reconstruction": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "retry": {
      "type": "object",
      "properties": {
        "max_attempts": {"type": "integer", "minimum": 1},
        "base_delay_ms": {"type": "integer", "minimum": 0},
        "jitter_percent": {"type": "integer", "minimum": 0, "maximum": 100}
      }
    },
    "oracle": {
      "type": "object",
      "properties": {
        "base_url": {"type": "string"},
        "api_key_env": {"type": "string"},
        "temperature": {"type": "number", "minimum": 0, "maximum": 2},
        "archive_responses": {"type": "boolean"}
      }
    },
    "verify": {
      "type": "object",
      "properties": {
        "max_passes": {"type": "integer", "minimum": 0}
      }
    }
  },
  "additionalProperties": false
}`
